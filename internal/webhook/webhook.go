// Package webhook delivers events to HTTP endpoints declared by hooks.
//
// Delivery follows the runner contract: every call produces a Result and
// never raises. A 2xx response is success with the capped response body as
// stdout; any other outcome is exit code -1 with the failure in Error.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/hook"
)

// maxResponseBody caps how much of a webhook response is captured.
const maxResponseBody = 8 * 1024

// Client posts events to webhook endpoints. Timeouts come from the caller's
// context, which the dispatcher derives from the hook's declared timeout.
type Client struct {
	http    *http.Client
	maxBody int64
}

func NewClient() *Client {
	return &Client{
		http:    &http.Client{},
		maxBody: maxResponseBody,
	}
}

// Deliver posts the event as JSON to the hook's endpoint and reports the
// outcome. The event type and hook name travel in X-Hookfire-Event and
// X-Hookfire-Hook headers; declared headers are applied last and may
// override the defaults.
func (c *Client) Deliver(ctx context.Context, hookName string, spec *hook.WebhookSpec, ev event.Event) hook.Result {
	start := time.Now()
	res := hook.Result{HookName: hookName, ExitCode: -1}
	finish := func() hook.Result {
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}

	body, err := json.Marshal(ev.Map())
	if err != nil {
		res.Error = fmt.Sprintf("encode event: %v", err)
		return finish()
	}

	method := spec.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL, bytes.NewReader(body))
	if err != nil {
		res.Error = fmt.Sprintf("build webhook request: %v", err)
		return finish()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hookfire-Hook", hookName)
	req.Header.Set("X-Hookfire-Event", ev.Type)
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		res.Error = fmt.Sprintf("webhook request: %v", err)
		return finish()
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // response body close best-effort
	}()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Success = true
		res.ExitCode = 0
		res.Stdout = string(captured)
	} else {
		res.Error = fmt.Sprintf("webhook returned %s", resp.Status)
		res.Stderr = string(captured)
	}
	return finish()
}
