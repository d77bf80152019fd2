package safety

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const maxExcerptLen = 120

// Warning is one advisory finding from a content scan. Line numbers are
// 1-based.
type Warning struct {
	Label   string `json:"label"`
	Line    int    `json:"line"`
	Excerpt string `json:"excerpt"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Label, w.Excerpt)
}

// Scan checks script content line by line against the destructive-pattern
// table and returns every match. Every line is scanned, comments included.
// A nil result means no findings.
func Scan(content []byte) []Warning {
	var warnings []Warning

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		for _, p := range destructivePatterns {
			if p.re.MatchString(text) {
				warnings = append(warnings, Warning{
					Label:   p.label,
					Line:    line,
					Excerpt: excerpt(text),
				})
			}
		}
	}
	return warnings
}

// ScanFile reads and scans a script, returning the findings plus the SHA-256
// hex digest of the exact bytes scanned.
func ScanFile(path string) ([]Warning, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read script: %w", err)
	}
	return Scan(data), ContentHash(data), nil
}

// ContentHash returns the SHA-256 hex digest of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func excerpt(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > maxExcerptLen {
		return trimmed[:maxExcerptLen] + "..."
	}
	return trimmed
}
