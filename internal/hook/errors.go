package hook

import (
	"fmt"
	"strings"
)

// Problem is one structural defect found while loading a hooks config:
// a missing required field, a malformed value, a script that does not exist.
type Problem struct {
	Hook    string
	Field   string
	Message string
}

func (p Problem) String() string {
	if p.Hook == "" {
		return fmt.Sprintf("%s: %s", p.Field, p.Message)
	}
	return fmt.Sprintf("hook %q: %s: %s", p.Hook, p.Field, p.Message)
}

// ValidationError reports every structural problem in a hooks config.
// The config as a whole is rejected; no partial set of hooks is returned.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("hooks config validation failed (%d problem(s)): %s",
		len(e.Problems), strings.Join(msgs, "; "))
}

// Violation is one security rule breach: path traversal, an out-of-range
// timeout, a forbidden character in an env value, and so on.
type Violation struct {
	Hook    string
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Hook == "" {
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("hook %q: %s: %s", v.Hook, v.Field, v.Message)
}

// SecurityError reports every security violation in a hooks config. Any
// violation rejects the entire config, including hooks that were themselves
// clean.
type SecurityError struct {
	Violations []Violation
}

func (e *SecurityError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("hooks config failed security validation (%d violation(s)): %s",
		len(e.Violations), strings.Join(msgs, "; "))
}
