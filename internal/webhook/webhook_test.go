package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/hook"
)

func TestDeliverSuccess(t *testing.T) {
	var gotMethod, gotHook, gotEvent, gotContentType string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHook = r.Header.Get("X-Hookfire-Hook")
		gotEvent = r.Header.Get("X-Hookfire-Event")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("accepted"))
	}))
	defer server.Close()

	ev := event.New("task.completed", "/tmp/proj")
	spec := &hook.WebhookSpec{URL: server.URL}
	res := NewClient().Deliver(context.Background(), "notifier", spec, ev)

	if !res.Success || res.ExitCode != 0 {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Stdout != "accepted" {
		t.Errorf("stdout = %q, want response body", res.Stdout)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST default", gotMethod)
	}
	if gotHook != "notifier" || gotEvent != "task.completed" {
		t.Errorf("identifying headers = %q, %q", gotHook, gotEvent)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["event_type"] != "task.completed" {
		t.Errorf("payload event_type = %v", gotBody["event_type"])
	}
	if id, _ := gotBody["event_id"].(string); !strings.HasPrefix(id, "evt-") {
		t.Errorf("payload event_id = %v", gotBody["event_id"])
	}
}

func TestDeliverCustomMethodAndHeaders(t *testing.T) {
	var gotMethod, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotToken = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	spec := &hook.WebhookSpec{
		URL:     server.URL,
		Method:  "PUT",
		Headers: map[string]string{"X-Token": "abc123"},
	}
	res := NewClient().Deliver(context.Background(), "putter", spec, event.New("spec.created", "/tmp/proj"))

	if !res.Success {
		t.Fatalf("expected success on 204, got %+v", res)
	}
	if gotMethod != "PUT" {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotToken != "abc123" {
		t.Errorf("custom header = %q", gotToken)
	}
}

func TestDeliverNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	spec := &hook.WebhookSpec{URL: server.URL}
	res := NewClient().Deliver(context.Background(), "flaky", spec, event.New("task.completed", "/tmp/proj"))

	if res.Success {
		t.Fatal("expected failure on 503")
	}
	if res.ExitCode != -1 {
		t.Errorf("exit code = %d, want -1", res.ExitCode)
	}
	if !strings.Contains(res.Error, "503") {
		t.Errorf("error = %q, want status in message", res.Error)
	}
	if !strings.Contains(res.Stderr, "overloaded") {
		t.Errorf("stderr = %q, want response body", res.Stderr)
	}
}

func TestDeliverTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	spec := &hook.WebhookSpec{URL: url}
	res := NewClient().Deliver(context.Background(), "gone", spec, event.New("task.completed", "/tmp/proj"))

	if res.Success || res.ExitCode != -1 || res.Error == "" {
		t.Fatalf("expected transport failure result, got %+v", res)
	}
}

func TestDeliverHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	spec := &hook.WebhookSpec{URL: server.URL}
	res := NewClient().Deliver(ctx, "slow", spec, event.New("task.completed", "/tmp/proj"))

	if res.Success || res.Error == "" {
		t.Fatalf("expected deadline failure, got %+v", res)
	}
}

func TestDeliverCapsResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64*1024)))
	}))
	defer server.Close()

	spec := &hook.WebhookSpec{URL: server.URL}
	res := NewClient().Deliver(context.Background(), "chatty", spec, event.New("task.completed", "/tmp/proj"))

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Stdout) != maxResponseBody {
		t.Errorf("stdout length = %d, want capped at %d", len(res.Stdout), maxResponseBody)
	}
}
