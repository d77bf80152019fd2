package hook

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrScriptNotFound marks a script path that is well-formed but absent on
// disk. Loaders classify it as a validation problem rather than a security
// violation.
var ErrScriptNotFound = errors.New("script not found")

// Characters never allowed in hook env values. The shell the hook runs in
// would interpret any of them.
const forbiddenEnvChars = ";|&$`()<>"

// ValidateScriptPath checks a script reference against the hooks root and
// returns the canonical absolute path to execute. Lexical checks run before
// any file I/O: an absolute path, a parent-directory segment, or a tilde
// prefix is rejected without ever touching the filesystem. Only then is the
// script resolved, with symlinks followed, and required to land inside the
// hooks root.
func ValidateScriptPath(hooksRoot, script string) (string, error) {
	if script == "" {
		return "", errors.New("script path is empty")
	}
	if filepath.IsAbs(script) {
		return "", fmt.Errorf("script path %q must be relative to the hooks root", script)
	}
	if strings.HasPrefix(script, "~") {
		return "", fmt.Errorf("script path %q must not start with ~", script)
	}
	if hasParentSegment(script) {
		return "", fmt.Errorf("script path %q must not contain a parent-directory segment", script)
	}

	abs := filepath.Join(hooksRoot, script)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrScriptNotFound, script)
		}
		return "", fmt.Errorf("stat script: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("script path %q is a directory", script)
	}

	resolved, err := canonicalWithin(hooksRoot, abs)
	if err != nil {
		return "", fmt.Errorf("script path %q resolves outside the hooks root: %w", script, err)
	}
	return resolved, nil
}

// ResolveWorkingDir checks a hook working directory against the project root
// and returns the absolute directory to run in. "." and "" mean the project
// root itself. The directory does not have to exist yet; if it does, its
// symlink-resolved location must stay inside the project.
func ResolveWorkingDir(projectRoot, workingDir string) (string, error) {
	if workingDir == "" || workingDir == DefaultWorkingDir {
		return projectRoot, nil
	}
	if filepath.IsAbs(workingDir) {
		return "", fmt.Errorf("working directory %q must be relative to the project root", workingDir)
	}
	if strings.HasPrefix(workingDir, "~") {
		return "", fmt.Errorf("working directory %q must not start with ~", workingDir)
	}
	if hasParentSegment(workingDir) {
		return "", fmt.Errorf("working directory %q must not contain a parent-directory segment", workingDir)
	}

	abs := filepath.Join(projectRoot, workingDir)
	if _, err := os.Stat(abs); err == nil {
		if _, err := canonicalWithin(projectRoot, abs); err != nil {
			return "", fmt.Errorf("working directory %q resolves outside the project root: %w", workingDir, err)
		}
	}
	return abs, nil
}

// CheckEnvValue reports the first forbidden shell metacharacter in an env
// value, if any.
func CheckEnvValue(value string) (rune, bool) {
	if i := strings.IndexAny(value, forbiddenEnvChars); i >= 0 {
		return rune(value[i]), true
	}
	return 0, false
}

func hasParentSegment(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// canonicalWithin resolves path with symlinks followed and verifies it still
// sits under root. Returns the resolved path.
func canonicalWithin(root, path string) (string, error) {
	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	canonPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(canonRoot, canonPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s escapes %s", canonPath, canonRoot)
	}
	return canonPath, nil
}

// validateDefinition runs the structural and security checks for one built
// definition. Structural defects become problems, security breaches become
// violations; both lists are collected in full rather than stopping at the
// first finding. The label names the hook in findings and falls back to a
// positional form for nameless records.
func validateDefinition(d *Definition, label, hooksRoot, projectRoot string) ([]Problem, []Violation) {
	var problems []Problem
	var violations []Violation

	if d.Name == "" {
		problems = append(problems, Problem{Hook: label, Field: "name", Message: "name is required"})
	}
	if len(d.Matchers) == 0 {
		problems = append(problems, Problem{Hook: label, Field: "events", Message: "at least one event matcher is required"})
	}
	for i, m := range d.Matchers {
		if m.Type == "" {
			problems = append(problems, Problem{
				Hook:    label,
				Field:   fmt.Sprintf("events[%d]", i),
				Message: "event type is required",
			})
		}
	}

	method, err := d.ResolveMethod()
	if err != nil {
		problems = append(problems, Problem{Hook: label, Field: "script/command/webhook", Message: err.Error()})
	}

	switch method {
	case MethodScript:
		if _, err := ValidateScriptPath(hooksRoot, d.Script); err != nil {
			if errors.Is(err, ErrScriptNotFound) {
				problems = append(problems, Problem{Hook: label, Field: "script", Message: err.Error()})
			} else {
				violations = append(violations, Violation{Hook: label, Field: "script", Message: err.Error()})
			}
		}
	case MethodCommand:
		if strings.TrimSpace(d.Command) == "" {
			problems = append(problems, Problem{Hook: label, Field: "command", Message: "command is empty"})
		}
	case MethodWebhook:
		if d.Webhook.URL == "" {
			problems = append(problems, Problem{Hook: label, Field: "webhook.url", Message: "url is required"})
		} else {
			violations = append(violations, checkWebhookScheme(d, label)...)
		}
	}

	if d.Timeout < MinTimeout || d.Timeout > MaxTimeout {
		violations = append(violations, Violation{
			Hook:    label,
			Field:   "timeout",
			Message: fmt.Sprintf("timeout %d outside allowed range [%d, %d]", d.Timeout, MinTimeout, MaxTimeout),
		})
	}

	if _, err := ResolveWorkingDir(projectRoot, d.WorkingDirectory); err != nil {
		violations = append(violations, Violation{Hook: label, Field: "working_directory", Message: err.Error()})
	}

	for _, key := range sortedKeys(d.Env) {
		if key == "" || strings.ContainsRune(key, '=') {
			problems = append(problems, Problem{
				Hook:    label,
				Field:   "env",
				Message: fmt.Sprintf("invalid env key %q", key),
			})
			continue
		}
		if ch, found := CheckEnvValue(d.Env[key]); found {
			violations = append(violations, Violation{
				Hook:    label,
				Field:   "env",
				Message: fmt.Sprintf("env value for %q contains forbidden character %q", key, ch),
			})
		}
	}

	if d.FailMode != FailModeContinue && d.FailMode != FailModeStop {
		problems = append(problems, Problem{
			Hook:    label,
			Field:   "fail_mode",
			Message: fmt.Sprintf("fail_mode must be %q or %q, got %q", FailModeContinue, FailModeStop, d.FailMode),
		})
	}

	return problems, violations
}

func checkWebhookScheme(d *Definition, label string) []Violation {
	u, err := url.Parse(d.Webhook.URL)
	if err != nil {
		return []Violation{{Hook: label, Field: "webhook.url", Message: fmt.Sprintf("invalid url: %v", err)}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []Violation{{
			Hook:    label,
			Field:   "webhook.url",
			Message: fmt.Sprintf("url scheme %q not allowed, only http and https", u.Scheme),
		}}
	}
	return nil
}
