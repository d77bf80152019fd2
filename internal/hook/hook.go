// Package hook defines the hook data model and the configuration loader
// that turns user-authored YAML into validated, immutable hook definitions.
//
// Loading is fail-closed: a single security violation anywhere in the
// document rejects the whole load. An absent config file is not an error;
// it yields an empty config.
package hook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boshu2/hookfire/internal/event"
)

// Definition field defaults and limits.
const (
	DefaultTimeout = 30
	MinTimeout     = 1
	MaxTimeout     = 600

	DefaultShell      = "sh"
	DefaultWorkingDir = "."

	FailModeContinue = "continue"
	FailModeStop     = "stop"
)

// Method identifies which execution method a hook uses.
type Method int

const (
	MethodUnknown Method = iota
	MethodScript
	MethodCommand
	MethodWebhook
)

// String returns the config-facing name of the method.
func (m Method) String() string {
	switch m {
	case MethodScript:
		return "script"
	case MethodCommand:
		return "command"
	case MethodWebhook:
		return "webhook"
	default:
		return "unknown"
	}
}

// ErrNoExecutionMethod is returned when a hook declares no script, command,
// or webhook.
var ErrNoExecutionMethod = errors.New("no execution method defined")

// WebhookSpec describes a webhook execution method.
type WebhookSpec struct {
	URL     string            `yaml:"url" json:"url"`
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Definition is one fully-resolved hook: global defaults are folded in at
// load time and the record is immutable afterward. Exactly one of Script,
// Command, or Webhook is populated on a definition that passed validation.
type Definition struct {
	Name             string            `yaml:"name" json:"name"`
	Matchers         []Matcher         `yaml:"events" json:"events"`
	Script           string            `yaml:"script,omitempty" json:"script,omitempty"`
	Command          string            `yaml:"command,omitempty" json:"command,omitempty"`
	Webhook          *WebhookSpec      `yaml:"webhook,omitempty" json:"webhook,omitempty"`
	Timeout          int               `yaml:"timeout" json:"timeout"`
	WorkingDirectory string            `yaml:"working_directory" json:"working_directory"`
	Shell            string            `yaml:"shell" json:"shell"`
	Env              map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	FailMode         string            `yaml:"fail_mode" json:"fail_mode"`
	Enabled          bool              `yaml:"enabled" json:"enabled"`
}

// ResolveMethod returns the single execution method for this hook. It is the
// only place that inspects which of the optional fields is populated; callers
// branch on the returned Method, never on the fields.
func (d *Definition) ResolveMethod() (Method, error) {
	var set []Method
	if d.Script != "" {
		set = append(set, MethodScript)
	}
	if d.Command != "" {
		set = append(set, MethodCommand)
	}
	if d.Webhook != nil {
		set = append(set, MethodWebhook)
	}

	switch len(set) {
	case 0:
		return MethodUnknown, ErrNoExecutionMethod
	case 1:
		return set[0], nil
	default:
		names := make([]string, len(set))
		for i, m := range set {
			names[i] = m.String()
		}
		return MethodUnknown, fmt.Errorf("multiple execution methods defined: %s", strings.Join(names, ", "))
	}
}

// Matches reports whether any of the hook's matchers accepts the event.
func (d *Definition) Matches(ev event.Event) bool {
	for _, m := range d.Matchers {
		if m.Matches(ev) {
			return true
		}
	}
	return false
}

// Config is one loaded hooks document. Constructed fresh per dispatch;
// treated as immutable once loaded.
type Config struct {
	Version  string
	Defaults map[string]any
	Hooks    []Definition
}

// Match returns the enabled hooks matching the event, in config order.
// Order is load order after defaults merging; the dispatcher relies on it
// for fail_mode=stop semantics.
func (c *Config) Match(ev event.Event) []Definition {
	var matched []Definition
	for _, d := range c.Hooks {
		if d.Enabled && d.Matches(ev) {
			matched = append(matched, d)
		}
	}
	return matched
}

// Result is the outcome of one hook invocation. The runner produces exactly
// one Result per executed hook and never raises instead; runner-level
// failures surface as ExitCode -1 with Error set.
type Result struct {
	HookName   string `json:"hook_name"`
	Success    bool   `json:"success"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
