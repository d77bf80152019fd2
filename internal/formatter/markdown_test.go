package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/boshu2/hookfire/internal/hook"
)

func TestMarkdownRendersHookSections(t *testing.T) {
	hooks := []hook.Definition{
		{
			Name:     "notify",
			Matchers: []hook.Matcher{{Type: "task.completed"}},
			Script:   "notify.sh",
			Timeout:  30,
			Shell:    "sh",
			FailMode: "continue",
			Enabled:  true,
		},
		{
			Name:     "page-oncall",
			Matchers: []hook.Matcher{{Type: "*.failed", Filters: map[string]any{"severity": "high"}}},
			Webhook:  &hook.WebhookSpec{URL: "https://hooks.example.com/page"},
			Timeout:  10,
			Shell:    "sh",
			Enabled:  false,
		},
	}

	var buf bytes.Buffer
	if err := NewMarkdownFormatter().Format(&buf, "payments", hooks); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Hooks: payments",
		"2 hook(s) configured.",
		"## notify",
		"- **Events:** task.completed",
		"- **Runs:** script `notify.sh`",
		"- **Timeout:** 30s",
		"- **On failure:** continue",
		"## page-oncall (disabled)",
		"- **Events:** *.failed (filtered)",
		"- **Runs:** webhook `https://hooks.example.com/page`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdownRendersEnvTable(t *testing.T) {
	hooks := []hook.Definition{
		{
			Name:     "deploy",
			Matchers: []hook.Matcher{{Type: "release.tagged"}},
			Command:  "make deploy",
			Timeout:  120,
			Shell:    "bash",
			Env:      map[string]string{"STAGE": "prod", "REGION": "us-east-1"},
			Enabled:  true,
		},
	}

	var buf bytes.Buffer
	if err := NewMarkdownFormatter().Format(&buf, "infra", hooks); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "| Variable | Value |") {
		t.Errorf("missing env table header:\n%s", out)
	}
	// Template iterates map keys in sorted order.
	regionIdx := strings.Index(out, "| REGION | us-east-1 |")
	stageIdx := strings.Index(out, "| STAGE | prod |")
	if regionIdx == -1 || stageIdx == -1 {
		t.Fatalf("missing env rows:\n%s", out)
	}
	if regionIdx > stageIdx {
		t.Errorf("env rows not sorted by key:\n%s", out)
	}
}

func TestMarkdownEmptyConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownFormatter().Format(&buf, "empty", nil); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), "0 hook(s) configured.") {
		t.Errorf("missing count line:\n%s", buf.String())
	}
}
