package formatter

import (
	"encoding/json"
	"io"
)

// JSON writes v to w as indented JSON. HTML escaping is disabled so URLs
// and shell fragments survive round-trips through the output.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONLines writes one compact JSON object per line, matching the audit log
// format so output can be piped back into JSONL tooling.
func JSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
