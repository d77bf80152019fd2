// Package audit maintains the tamper-evident JSONL audit log of hook
// executions.
//
// Every entry carries entry_hash = sha256(canonical payload JSON + previous
// entry_hash), with "" standing in for the hash before the first entry. The
// previous hash never appears on the wire; verification reconstructs the
// chain from the file itself, so any edit, insertion, or deletion flags the
// changed line and every line after it.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/boshu2/hookfire/internal/config"
)

// Entry is one audit record: which hook ran for which event, and how it
// went. All fields are scalars; the canonical JSON that feeds the hash chain
// is this field order minus entry_hash.
type Entry struct {
	Timestamp  string `json:"timestamp"`
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	HookName   string `json:"hook_name"`
	Success    bool   `json:"success"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	EntryHash  string `json:"entry_hash"`
}

// entryPayload is the hashed portion of an entry.
type entryPayload struct {
	Timestamp  string `json:"timestamp"`
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	HookName   string `json:"hook_name"`
	Success    bool   `json:"success"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Anomaly is one verification finding. Line numbers are 1-based positions in
// the file.
type Anomaly struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("line %d: %s", a.Line, a.Reason)
}

// VerifyResult reports a full chain verification. Anomalies are collected
// for the whole file rather than stopping at the first finding.
type VerifyResult struct {
	Pass      bool      `json:"pass"`
	Entries   int       `json:"entries"`
	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// Logger appends to and verifies one audit log file.
type Logger struct {
	path string
}

func New(path string) *Logger {
	return &Logger{path: path}
}

// ForProject returns the logger for a project's audit log.
func ForProject(projectRoot string) *Logger {
	return New(config.AuditLogPath(projectRoot))
}

func (l *Logger) Path() string { return l.path }

// Append writes one entry with lock + fsync durability and returns it with
// the timestamp and entry hash filled in. The previous hash is read from the
// file under the same lock, so concurrent appenders cannot fork the chain.
func (l *Logger) Append(e Entry) (Entry, error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create audit dir: %w", err)
	}

	lockFile, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit lock: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return Entry{}, fmt.Errorf("lock audit log: %w", err)
	}
	defer func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) //nolint:errcheck // unlock best-effort
	}()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	prevHash, err := readLastHash(file)
	if err != nil {
		return Entry{}, err
	}

	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	hash, err := computeEntryHash(e, prevHash)
	if err != nil {
		return Entry{}, err
	}
	e.EntryHash = hash

	line, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal audit entry: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return Entry{}, fmt.Errorf("seek audit log end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	if err := file.Sync(); err != nil {
		return Entry{}, fmt.Errorf("fsync audit log: %w", err)
	}
	if err := syncDirectory(dir); err != nil {
		return Entry{}, err
	}

	return e, nil
}

// Verify replays the whole file against the reconstructed hash chain. The
// expected previous hash advances with the recomputed value, not the stored
// one, so a tampered line flags itself and every line after it. Anomalies
// are findings, not errors; only I/O failures return an error.
func (l *Logger) Verify() (VerifyResult, error) {
	result := VerifyResult{Pass: true}

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	prevHash := ""
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Entries++

		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			result.Anomalies = append(result.Anomalies, Anomaly{Line: lineNum, Reason: "malformed JSON"})
			continue
		}

		expected, err := computeEntryHash(e, prevHash)
		if err != nil {
			result.Anomalies = append(result.Anomalies, Anomaly{Line: lineNum, Reason: err.Error()})
			continue
		}

		switch {
		case e.EntryHash == "":
			result.Anomalies = append(result.Anomalies, Anomaly{Line: lineNum, Reason: "missing entry_hash"})
		case e.EntryHash != expected:
			result.Anomalies = append(result.Anomalies, Anomaly{Line: lineNum, Reason: "entry_hash mismatch"})
		}
		prevHash = expected
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("scan audit log: %w", err)
	}

	result.Pass = len(result.Anomalies) == 0
	return result, nil
}

// Recent returns the last n entries, most recent first, silently skipping
// unparsable lines. n <= 0 returns everything.
func (l *Logger) Recent(n int) ([]Entry, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// readLastHash scans for the newest parsable entry's hash. Unparsable lines
// are skipped so a damaged log still accepts new entries; verification is
// where damage gets reported.
func readLastHash(file *os.File) (string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek audit log start: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lastHash := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.EntryHash != "" {
			lastHash = e.EntryHash
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan audit log: %w", err)
	}
	return lastHash, nil
}

func computeEntryHash(e Entry, prevHash string) (string, error) {
	payload := entryPayload{
		Timestamp:  e.Timestamp,
		EventID:    e.EventID,
		EventType:  e.EventType,
		HookName:   e.HookName,
		Success:    e.Success,
		ExitCode:   e.ExitCode,
		DurationMS: e.DurationMS,
		Error:      e.Error,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	return hashHex(append(payloadBytes, []byte(prevHash)...)), nil
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func syncDirectory(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory for fsync: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil
		}
		return fmt.Errorf("fsync directory: %w", err)
	}
	return nil
}
