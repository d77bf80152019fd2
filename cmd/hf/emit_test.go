package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/hook"
)

func TestParseKeyValues(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "single pair",
			pairs: []string{"author=ina"},
			want:  map[string]any{"author": "ina"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"expr=a=b"},
			want:  map[string]any{"expr": "a=b"},
		},
		{
			name:  "empty value allowed",
			pairs: []string{"flag="},
			want:  map[string]any{"flag": ""},
		},
		{
			name:    "missing separator",
			pairs:   []string{"nonsense"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeyValues(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseKeyValues(%v) = %v, want error", tt.pairs, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseKeyValues(%v): %v", tt.pairs, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("key %s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestCountFailed(t *testing.T) {
	results := []hook.Result{
		{HookName: "a", Success: true},
		{HookName: "b", Success: false},
		{HookName: "c", Success: false},
	}
	if got := countFailed(results); got != 2 {
		t.Errorf("countFailed = %d, want 2", got)
	}
	if got := countFailed(nil); got != 0 {
		t.Errorf("countFailed(nil) = %d, want 0", got)
	}
}

func TestOutputEmitResultsTable(t *testing.T) {
	ev := event.New("task.completed", t.TempDir())
	results := []hook.Result{
		{HookName: "notify", Success: true, ExitCode: 0, DurationMS: 12},
		{HookName: "deploy", Success: false, ExitCode: 3, DurationMS: 840, Error: "exit status 3"},
	}

	var buf bytes.Buffer
	if err := outputEmitResults(&buf, "table", ev, results); err != nil {
		t.Fatalf("outputEmitResults: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"HOOK", "notify", "ok", "deploy", "failed", "840ms", "exit status 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestOutputEmitResultsJSON(t *testing.T) {
	ev := event.New("task.completed", t.TempDir())
	results := []hook.Result{{HookName: "notify", Success: true}}

	var buf bytes.Buffer
	if err := outputEmitResults(&buf, "json", ev, results); err != nil {
		t.Fatalf("outputEmitResults: %v", err)
	}
	if !strings.Contains(buf.String(), `"hook_name": "notify"`) {
		t.Errorf("missing hook_name in JSON output:\n%s", buf.String())
	}
}

func TestOutputEmitResultsNoMatches(t *testing.T) {
	ev := event.New("spec.created", t.TempDir())

	var buf bytes.Buffer
	if err := outputEmitResults(&buf, "table", ev, nil); err != nil {
		t.Fatalf("outputEmitResults: %v", err)
	}
	if !strings.Contains(buf.String(), "No hooks matched spec.created") {
		t.Errorf("missing no-match message:\n%s", buf.String())
	}
}
