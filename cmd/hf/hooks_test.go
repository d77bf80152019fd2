package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boshu2/hookfire/internal/hook"
)

func TestEventsCell(t *testing.T) {
	d := hook.Definition{
		Matchers: []hook.Matcher{
			{Type: "task.completed"},
			{Type: "*.failed", Filters: map[string]any{"severity": "high"}},
		},
	}
	if got := eventsCell(d); got != "task.completed,*.failed+filters" {
		t.Errorf("eventsCell = %q", got)
	}
}

func TestMethodCell(t *testing.T) {
	tests := []struct {
		name       string
		def        hook.Definition
		wantMethod string
		wantTarget string
	}{
		{
			name:       "script",
			def:        hook.Definition{Script: "notify.sh"},
			wantMethod: "script",
			wantTarget: "notify.sh",
		},
		{
			name:       "command",
			def:        hook.Definition{Command: "make lint"},
			wantMethod: "command",
			wantTarget: "make lint",
		},
		{
			name:       "webhook",
			def:        hook.Definition{Webhook: &hook.WebhookSpec{URL: "https://example.com/x"}},
			wantMethod: "webhook",
			wantTarget: "https://example.com/x",
		},
		{
			name:       "none",
			def:        hook.Definition{},
			wantMethod: "invalid",
			wantTarget: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, target := methodCell(tt.def)
			if method != tt.wantMethod || target != tt.wantTarget {
				t.Errorf("methodCell = (%q, %q), want (%q, %q)", method, target, tt.wantMethod, tt.wantTarget)
			}
		})
	}
}

func TestOutputHooksListTable(t *testing.T) {
	hooks := []hook.Definition{
		{
			Name:     "notify",
			Matchers: []hook.Matcher{{Type: "task.completed"}},
			Script:   "notify.sh",
			Timeout:  30,
			FailMode: "continue",
			Enabled:  true,
		},
		{
			Name:     "page",
			Matchers: []hook.Matcher{{Type: "*.failed"}},
			Webhook:  &hook.WebhookSpec{URL: "https://example.com/page"},
			Timeout:  10,
			FailMode: "stop",
			Enabled:  false,
		},
	}

	var buf bytes.Buffer
	if err := outputHooksList(&buf, "table", "/tmp/proj", hooks); err != nil {
		t.Fatalf("outputHooksList: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"NAME", "notify", "script", "30s", "continue", "yes", "page", "webhook", "stop", "no"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestOutputHooksListEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := outputHooksList(&buf, "table", "/tmp/proj", nil); err != nil {
		t.Fatalf("outputHooksList: %v", err)
	}
	if !strings.Contains(buf.String(), "No hooks configured") {
		t.Errorf("missing empty message:\n%s", buf.String())
	}
}

func TestPrintFindingsRendersBothKinds(t *testing.T) {
	err := errors.Join(
		&hook.SecurityError{Violations: []hook.Violation{
			{Hook: "evil", Field: "script", Message: "path escapes the hooks root"},
		}},
		&hook.ValidationError{Problems: []hook.Problem{
			{Hook: "incomplete", Field: "events", Message: "at least one event is required"},
		}},
	)

	var buf bytes.Buffer
	printFindings(&buf, err)
	out := buf.String()

	if !strings.Contains(out, `violation: hook "evil": script: path escapes the hooks root`) {
		t.Errorf("missing violation line:\n%s", out)
	}
	if !strings.Contains(out, `problem: hook "incomplete": events: at least one event is required`) {
		t.Errorf("missing problem line:\n%s", out)
	}
}

func TestPrintFindingsPlainError(t *testing.T) {
	var buf bytes.Buffer
	printFindings(&buf, errors.New("yaml: line 3: mapping values"))
	if !strings.Contains(buf.String(), "error: yaml: line 3") {
		t.Errorf("missing plain error line:\n%s", buf.String())
	}
}

func TestCollectScriptsSkipsAuditArtifacts(t *testing.T) {
	hooksRoot := filepath.Join(t.TempDir(), "hooks")
	if err := os.MkdirAll(filepath.Join(hooksRoot, "checks"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"deploy.sh":       "#!/bin/sh\n",
		"checks/lint.sh":  "#!/bin/sh\n",
		"audit.log":       "{}\n",
		"audit.log.lock":  "",
		"checks/run.lock": "",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(hooksRoot, rel), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	scripts, err := collectScripts(hooksRoot)
	if err != nil {
		t.Fatalf("collectScripts: %v", err)
	}
	if len(scripts) != 2 {
		t.Fatalf("scripts = %v, want the two shell scripts", scripts)
	}
	for _, s := range scripts {
		if strings.Contains(s, "audit.log") || strings.HasSuffix(s, ".lock") {
			t.Errorf("collected excluded file %s", s)
		}
	}
}

func TestCollectScriptsMissingRoot(t *testing.T) {
	scripts, err := collectScripts(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("collectScripts: %v", err)
	}
	if scripts != nil {
		t.Errorf("scripts = %v, want none", scripts)
	}
}

func TestScanScriptsReportsFindings(t *testing.T) {
	hooksRoot := t.TempDir()
	clean := filepath.Join(hooksRoot, "clean.sh")
	risky := filepath.Join(hooksRoot, "risky.sh")
	if err := os.WriteFile(clean, []byte("#!/bin/sh\necho ok\n"), 0o755); err != nil {
		t.Fatalf("write clean: %v", err)
	}
	if err := os.WriteFile(risky, []byte("#!/bin/sh\nrm -rf / --no-preserve-root\n"), 0o755); err != nil {
		t.Fatalf("write risky: %v", err)
	}

	reports := scanScripts([]string{clean, risky}, 2)
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	// Pool preserves input order.
	if len(reports[0].Warnings) != 0 {
		t.Errorf("clean script flagged: %+v", reports[0].Warnings)
	}
	if len(reports[1].Warnings) == 0 {
		t.Error("destructive script produced no warnings")
	}
	for _, rep := range reports {
		if len(rep.Hash) != 64 {
			t.Errorf("%s: hash = %q, want sha256 hex", rep.Path, rep.Hash)
		}
	}
}

func TestOutputScanReportsTable(t *testing.T) {
	reports := []scanReport{
		{Path: "/x/hooks/clean.sh", Hash: strings.Repeat("a", 64)},
		{Path: "/x/hooks/risky.sh", Hash: strings.Repeat("b", 64), Warnings: nil},
	}

	var buf bytes.Buffer
	if err := outputScanReports(&buf, "table", "/x/hooks", reports); err != nil {
		t.Fatalf("outputScanReports: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "clean.sh") || !strings.Contains(out, "risky.sh") {
		t.Errorf("missing relative paths:\n%s", out)
	}
	if !strings.Contains(out, "aaaaaaaaaaaa ") && !strings.Contains(out, "aaaaaaaaaaaa") {
		t.Errorf("missing short hash:\n%s", out)
	}
	if !strings.Contains(out, "no findings") {
		t.Errorf("missing summary:\n%s", out)
	}
}
