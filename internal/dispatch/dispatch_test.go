package dispatch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boshu2/hookfire/internal/audit"
	"github.com/boshu2/hookfire/internal/event"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeHooksConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ".hookfire")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hooks.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks config: %v", err)
	}
}

func writeHookScript(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, ".hookfire", "hooks", rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir script dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func readMarker(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	if err != nil {
		t.Fatalf("read marker file: %v", err)
	}
	return string(data)
}

func TestEmitRunsMatchingHooksInConfigOrder(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "first.sh", "#!/bin/sh\necho first >> out.txt\n")
	writeHookScript(t, root, "second.sh", "#!/bin/sh\necho second >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: first
    events: ["task.completed"]
    script: first.sh
  - name: second
    events: ["task.completed"]
    script: second.sh
  - name: unrelated
    events: ["spec.created"]
    script: first.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	results := d.Emit(context.Background(), event.New("task.completed", root))
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].HookName != "first" || results[1].HookName != "second" {
		t.Errorf("order = [%s %s], want config order", results[0].HookName, results[1].HookName)
	}
	for _, res := range results {
		if !res.Success {
			t.Errorf("hook %s failed: %s", res.HookName, res.Error)
		}
	}
	if got := readMarker(t, root); got != "first\nsecond\n" {
		t.Errorf("marker = %q, want sequential execution", got)
	}
}

func TestEmitAppendsAuditEntryPerResult(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "ok.sh", "#!/bin/sh\nexit 0\n")
	writeHookScript(t, root, "bad.sh", "#!/bin/sh\nexit 3\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: ok
    events: ["task.completed"]
    script: ok.sh
  - name: bad
    events: ["task.completed"]
    script: bad.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	ev := event.New("task.completed", root)
	d.Emit(context.Background(), ev)

	entries, err := audit.ForProject(root).Recent(10)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	// Recent returns newest first.
	if entries[0].HookName != "bad" || entries[1].HookName != "ok" {
		t.Errorf("audit order = [%s %s], want [bad ok]", entries[0].HookName, entries[1].HookName)
	}
	if entries[0].Success || entries[0].ExitCode != 3 {
		t.Errorf("failed hook entry = %+v, want success=false exit_code=3", entries[0])
	}
	for _, e := range entries {
		if e.EventID != ev.ID || e.EventType != "task.completed" {
			t.Errorf("entry %s: event fields = (%s, %s), want (%s, task.completed)",
				e.HookName, e.EventID, e.EventType, ev.ID)
		}
	}

	verify, err := audit.ForProject(root).Verify()
	if err != nil {
		t.Fatalf("verify audit log: %v", err)
	}
	if !verify.Pass {
		t.Errorf("audit chain broken after dispatch: %+v", verify.Anomalies)
	}
}

func TestEmitFailModeStopHaltsRemainingHooks(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "a.sh", "#!/bin/sh\necho a >> out.txt\n")
	writeHookScript(t, root, "b.sh", "#!/bin/sh\necho b >> out.txt\nexit 1\n")
	writeHookScript(t, root, "c.sh", "#!/bin/sh\necho c >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: a
    events: ["task.completed"]
    script: a.sh
  - name: b
    events: ["task.completed"]
    script: b.sh
    fail_mode: stop
  - name: c
    events: ["task.completed"]
    script: c.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	results := d.Emit(context.Background(), event.New("task.completed", root))
	if len(results) != 2 {
		t.Fatalf("results = %d, want dispatch halted after the stop hook", len(results))
	}
	if results[1].HookName != "b" || results[1].Success {
		t.Errorf("second result = %+v, want failed hook b", results[1])
	}
	if got := readMarker(t, root); strings.Contains(got, "c") {
		t.Errorf("marker = %q, hook c ran after a stop failure", got)
	}
}

func TestEmitFailureContinuesByDefault(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "bad.sh", "#!/bin/sh\nexit 1\n")
	writeHookScript(t, root, "after.sh", "#!/bin/sh\necho after >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: bad
    events: ["task.completed"]
    script: bad.sh
  - name: after
    events: ["task.completed"]
    script: after.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	results := d.Emit(context.Background(), event.New("task.completed", root))
	if len(results) != 2 {
		t.Fatalf("results = %d, want both hooks to run", len(results))
	}
	if got := readMarker(t, root); got != "after\n" {
		t.Errorf("marker = %q, want later hook to have run", got)
	}
}

func TestEmitRepeatedEventsYieldEquivalentResults(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "ok.sh", "#!/bin/sh\necho ok\n")
	writeHookScript(t, root, "bad.sh", "#!/bin/sh\nexit 2\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: ok
    events: ["task.completed"]
    script: ok.sh
  - name: bad
    events: ["task.completed"]
    script: bad.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	first := d.Emit(context.Background(), event.New("task.completed", root))
	second := d.Emit(context.Background(), event.New("task.completed", root))

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].HookName != second[i].HookName ||
			first[i].Success != second[i].Success ||
			first[i].ExitCode != second[i].ExitCode {
			t.Errorf("result %d differs across emissions:\nfirst:  %+v\nsecond: %+v",
				i, first[i], second[i])
		}
	}
}

func TestEmitWithoutConfigRunsNothing(t *testing.T) {
	root := t.TempDir()
	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	results := d.Emit(context.Background(), event.New("task.completed", root))
	if results != nil {
		t.Errorf("results = %v, want none", results)
	}
}

func TestEmitRejectedConfigRunsNoHooks(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "good.sh", "#!/bin/sh\necho good >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: good
    events: ["task.completed"]
    script: good.sh
  - name: escape
    events: ["task.completed"]
    script: ../../etc/passwd
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	results := d.Emit(context.Background(), event.New("task.completed", root))
	if results != nil {
		t.Fatalf("results = %v, want zero hooks from a rejected config", results)
	}
	if _, err := os.Stat(filepath.Join(root, "out.txt")); !os.IsNotExist(err) {
		t.Error("valid hook ran despite the config being rejected")
	}
}

func TestEmitUnmatchedEventRunsNothing(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "ok.sh", "#!/bin/sh\necho ok >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: ok
    events: ["spec.created"]
    script: ok.sh
`)

	d := New(root, WithLogger(quietLogger()))
	defer d.Close()

	if results := d.Emit(context.Background(), event.New("task.completed", root)); results != nil {
		t.Errorf("results = %v, want none for an unmatched event", results)
	}
}

func TestEmitAsyncCompletesBeforeClose(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "mark.sh", "#!/bin/sh\necho async >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: mark
    events: ["task.completed"]
    script: mark.sh
`)

	d := New(root, WithLogger(quietLogger()))
	d.EmitAsync(event.New("task.completed", root))
	d.Close()

	if got := readMarker(t, root); got != "async\n" {
		t.Errorf("marker = %q, want async hook drained by Close", got)
	}
	entries, err := audit.ForProject(root).Recent(10)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(entries) != 1 || entries[0].HookName != "mark" {
		t.Errorf("audit entries = %+v, want one entry for mark", entries)
	}
}

func TestEmitAsyncAfterCloseIsDropped(t *testing.T) {
	root := t.TempDir()
	writeHookScript(t, root, "mark.sh", "#!/bin/sh\necho late >> out.txt\n")
	writeHooksConfig(t, root, `
version: "1"
hooks:
  - name: mark
    events: ["task.completed"]
    script: mark.sh
`)

	d := New(root, WithLogger(quietLogger()))
	d.Close()
	d.EmitAsync(event.New("task.completed", root))

	if _, err := os.Stat(filepath.Join(root, "out.txt")); !os.IsNotExist(err) {
		t.Error("hook ran for an event submitted after Close")
	}
}
