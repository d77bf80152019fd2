package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boshu2/hookfire/internal/config"
)

// rawConfig is the on-disk document before defaults merging. Hook records
// stay as raw maps so that key presence, not zero values, decides whether a
// record overrides a default.
type rawConfig struct {
	Version  string           `yaml:"version"`
	Defaults map[string]any   `yaml:"defaults"`
	Hooks    []map[string]any `yaml:"hooks"`
}

// Load reads the project hooks config, folds global defaults into each hook,
// and validates the result. A missing config file yields an empty config.
// Any structural problem or security violation rejects the entire document;
// a partial hook set is never returned.
func Load(projectRoot string) (*Config, error) {
	path := config.FindHooksConfig(projectRoot)
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hooks config: %w", err)
	}
	return parse(data, projectRoot)
}

func parse(data []byte, projectRoot string) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hooks config: %w", err)
	}

	hooksRoot := config.HooksRoot(projectRoot)
	cfg := &Config{Version: raw.Version, Defaults: raw.Defaults}

	var problems []Problem
	var violations []Violation
	seen := make(map[string]bool)

	for i, record := range raw.Hooks {
		merged := mergeRecord(raw.Defaults, record)
		def, label, probs := buildDefinition(merged, i)
		problems = append(problems, probs...)

		if def.Name != "" {
			if seen[def.Name] {
				violations = append(violations, Violation{Hook: def.Name, Field: "name", Message: "duplicate hook name"})
			}
			seen[def.Name] = true
		}

		defProbs, defVios := validateDefinition(&def, label, hooksRoot, projectRoot)
		problems = append(problems, defProbs...)
		violations = append(violations, defVios...)

		cfg.Hooks = append(cfg.Hooks, def)
	}

	var secErr, valErr error
	if len(violations) > 0 {
		secErr = &SecurityError{Violations: violations}
	}
	if len(problems) > 0 {
		valErr = &ValidationError{Problems: problems}
	}
	if secErr != nil || valErr != nil {
		return nil, errors.Join(secErr, valErr)
	}
	return cfg, nil
}

// mergeRecord folds global defaults into one hook record. The merge is a
// shallow dict update: a key present on the record replaces the default
// wholesale, including mapping values like env.
func mergeRecord(defaults, record map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(record))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range record {
		merged[k] = v
	}
	return merged
}

// buildDefinition turns one merged record into a Definition, applying field
// defaults and collecting type problems. The returned label identifies the
// hook in findings, falling back to a positional form for nameless records.
func buildDefinition(merged map[string]any, index int) (Definition, string, []Problem) {
	d := Definition{
		Timeout:          DefaultTimeout,
		WorkingDirectory: DefaultWorkingDir,
		Shell:            DefaultShell,
		FailMode:         FailModeContinue,
		Enabled:          true,
	}
	var problems []Problem

	d.Name, _ = asString(merged["name"])
	label := d.Name
	if label == "" {
		label = fmt.Sprintf("hooks[%d]", index)
	}
	addProblem := func(field, format string, args ...any) {
		problems = append(problems, Problem{Hook: label, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if v, ok := merged["events"]; ok {
		matchers, err := parseMatchers(v)
		if err != nil {
			addProblem("events", "%v", err)
		}
		d.Matchers = matchers
	}
	if v, ok := merged["script"]; ok {
		if s, isStr := asString(v); isStr {
			d.Script = s
		} else {
			addProblem("script", "must be a string")
		}
	}
	if v, ok := merged["command"]; ok {
		if s, isStr := asString(v); isStr {
			d.Command = s
		} else {
			addProblem("command", "must be a string")
		}
	}
	if v, ok := merged["webhook"]; ok {
		spec, err := parseWebhook(v)
		if err != nil {
			addProblem("webhook", "%v", err)
		} else {
			d.Webhook = spec
		}
	}
	if v, ok := merged["timeout"]; ok {
		if n, isInt := asInt(v); isInt {
			d.Timeout = n
		} else {
			addProblem("timeout", "must be an integer")
		}
	}
	if v, ok := merged["working_directory"]; ok {
		if s, isStr := asString(v); isStr {
			d.WorkingDirectory = s
		} else {
			addProblem("working_directory", "must be a string")
		}
	}
	if v, ok := merged["shell"]; ok {
		if s, isStr := asString(v); isStr && s != "" {
			d.Shell = s
		} else {
			addProblem("shell", "must be a non-empty string")
		}
	}
	if v, ok := merged["env"]; ok {
		env, err := asStringMap(v)
		if err != nil {
			addProblem("env", "%v", err)
		} else {
			d.Env = env
		}
	}
	if v, ok := merged["fail_mode"]; ok {
		if s, isStr := asString(v); isStr {
			d.FailMode = s
		} else {
			addProblem("fail_mode", "must be a string")
		}
	}
	if v, ok := merged["enabled"]; ok {
		if b, isBool := v.(bool); isBool {
			d.Enabled = b
		} else {
			addProblem("enabled", "must be a boolean")
		}
	}

	return d, label, problems
}

// parseMatchers accepts the event matcher shapes authors write: a list of
// strings and mappings, or a bare string, where a string is shorthand for a
// matcher with no filters.
func parseMatchers(v any) ([]Matcher, error) {
	items, ok := asList(v)
	if !ok {
		items = []any{v}
	}
	matchers := make([]Matcher, 0, len(items))
	for i, item := range items {
		switch t := item.(type) {
		case string:
			matchers = append(matchers, Matcher{Type: t})
		case map[string]any:
			m := Matcher{}
			m.Type, _ = asString(t["type"])
			if f, present := t["filters"]; present {
				fm, isMap := f.(map[string]any)
				if !isMap {
					return nil, fmt.Errorf("events[%d]: filters must be a mapping", i)
				}
				m.Filters = fm
			}
			matchers = append(matchers, m)
		default:
			return nil, fmt.Errorf("events[%d]: must be a string or a mapping", i)
		}
	}
	return matchers, nil
}

func parseWebhook(v any) (*WebhookSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("must be a mapping")
	}
	spec := &WebhookSpec{Method: "POST"}
	spec.URL, _ = asString(m["url"])
	if s, isStr := asString(m["method"]); isStr && s != "" {
		spec.Method = strings.ToUpper(s)
	}
	if h, present := m["headers"]; present {
		headers, err := asStringMap(h)
		if err != nil {
			return nil, fmt.Errorf("headers: %v", err)
		}
		spec.Headers = headers
	}
	return spec, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asInt accepts the integer shapes YAML and JSON decoding produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// asStringMap coerces a decoded mapping to string values. Scalars are
// stringified the way they were written; nested mappings and lists are
// rejected.
func asStringMap(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("must be a mapping")
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		s, err := formatScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %q %v", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func formatScalar(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", errors.New("must be a scalar")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// configDocument mirrors the on-disk document shape for encoding.
type configDocument struct {
	Version  string         `yaml:"version,omitempty" json:"version,omitempty"`
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Hooks    []Definition   `yaml:"hooks" json:"hooks"`
}

// Encode renders a config back to YAML. Hooks are written fully resolved,
// so re-loading the output yields an equivalent config regardless of the
// defaults block.
func Encode(c *Config) ([]byte, error) {
	return yaml.Marshal(configDocument{Version: c.Version, Defaults: c.Defaults, Hooks: c.Hooks})
}

// Marshal renders a config as indented JSON.
func Marshal(c *Config) ([]byte, error) {
	return json.MarshalIndent(configDocument{Version: c.Version, Defaults: c.Defaults, Hooks: c.Hooks}, "", "  ")
}
