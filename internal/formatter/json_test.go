package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONIndentsAndSkipsHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]string{"url": "https://example.com/notify?a=1&b=2"}
	if err := JSON(&buf, v); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "  \"url\"") {
		t.Errorf("output not indented:\n%s", out)
	}
	if !strings.Contains(out, "a=1&b=2") {
		t.Errorf("ampersand was HTML-escaped:\n%s", out)
	}
}

func TestJSONLinesOnePerLine(t *testing.T) {
	type row struct {
		Name string `json:"name"`
		Code int    `json:"code"`
	}
	var buf bytes.Buffer
	items := []row{{"notify", 0}, {"deploy", 1}, {"cleanup", 0}}
	if err := JSONLines(&buf, items); err != nil {
		t.Fatalf("JSONLines: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	for i, line := range lines {
		var got row
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Errorf("line %d not valid JSON: %v", i, err)
		}
		if got.Name != items[i].Name {
			t.Errorf("line %d: name = %q, want %q", i, got.Name, items[i].Name)
		}
	}
}

func TestJSONLinesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONLines(&buf, []int(nil)); err != nil {
		t.Fatalf("JSONLines: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty slice, got %q", buf.String())
	}
}
