// Package event defines the immutable lifecycle event record that triggers
// hook dispatch. Events are constructed once by the caller, serialized to
// JSON for transport and for injection into hook process environments, and
// never mutated afterward.
package event

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = "1.0"

// Event records one thing that happened in the surrounding workflow,
// e.g. "spec.created" or "task.completed". Field names follow the wire
// schema used in hook environments and the audit log.
type Event struct {
	Type          string         `json:"event_type"`
	ID            string         `json:"event_id"`
	Timestamp     string         `json:"timestamp"`
	SchemaVersion string         `json:"schema_version"`
	ProjectRoot   string         `json:"project_root"`
	Feature       string         `json:"feature,omitempty"`
	Context       map[string]any `json:"context"`
	Artifacts     []string       `json:"artifacts"`
	Metadata      map[string]any `json:"metadata"`
}

// Option customizes an Event at construction time.
type Option func(*Event)

// WithID sets an explicit event ID instead of generating one.
func WithID(id string) Option {
	return func(e *Event) { e.ID = id }
}

// WithTimestamp sets an explicit timestamp (UTC RFC3339Nano).
func WithTimestamp(ts string) Option {
	return func(e *Event) { e.Timestamp = ts }
}

// WithFeature sets the optional feature slug.
func WithFeature(feature string) Option {
	return func(e *Event) { e.Feature = feature }
}

// WithContext sets context fields (copied).
func WithContext(ctx map[string]any) Option {
	return func(e *Event) { e.Context = maps.Clone(ctx) }
}

// WithArtifacts sets artifact paths (copied).
func WithArtifacts(paths ...string) Option {
	return func(e *Event) { e.Artifacts = slices.Clone(paths) }
}

// WithMetadata sets metadata fields (copied).
func WithMetadata(md map[string]any) Option {
	return func(e *Event) { e.Metadata = maps.Clone(md) }
}

// New constructs an Event, generating the ID and timestamp when not supplied.
func New(eventType, projectRoot string, opts ...Option) Event {
	e := Event{
		Type:          eventType,
		SchemaVersion: SchemaVersion,
		ProjectRoot:   projectRoot,
		Context:       map[string]any{},
		Artifacts:     []string{},
		Metadata:      map[string]any{},
	}
	for _, opt := range opts {
		opt(&e)
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return e
}

// NewID returns a fresh event ID.
func NewID() string {
	return "evt-" + uuid.NewString()
}

// FromMap reconstructs an Event from a JSON-compatible map, generating the
// ID and timestamp when absent. The event type is required.
func FromMap(m map[string]any) (Event, error) {
	eventType, ok := extractString(m, "event_type")
	if !ok || eventType == "" {
		return Event{}, fmt.Errorf("event_type is required")
	}

	e := Event{
		Type:          eventType,
		SchemaVersion: SchemaVersion,
		Context:       map[string]any{},
		Artifacts:     []string{},
		Metadata:      map[string]any{},
	}
	if id, ok := extractString(m, "event_id"); ok {
		e.ID = id
	}
	if ts, ok := extractString(m, "timestamp"); ok {
		e.Timestamp = ts
	}
	if sv, ok := extractString(m, "schema_version"); ok && sv != "" {
		e.SchemaVersion = sv
	}
	if root, ok := extractString(m, "project_root"); ok {
		e.ProjectRoot = root
	}
	if feature, ok := extractString(m, "feature"); ok {
		e.Feature = feature
	}
	if ctx, ok := extractMap(m, "context"); ok {
		e.Context = maps.Clone(ctx)
	}
	if md, ok := extractMap(m, "metadata"); ok {
		e.Metadata = maps.Clone(md)
	}
	if artifacts, ok := extractStringList(m, "artifacts"); ok {
		e.Artifacts = artifacts
	}

	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return e, nil
}

// Map returns the event as a JSON-compatible map. Maps and slices are copied
// so callers cannot reach back into the event.
func (e Event) Map() map[string]any {
	m := map[string]any{
		"event_type":     e.Type,
		"event_id":       e.ID,
		"timestamp":      e.Timestamp,
		"schema_version": e.SchemaVersion,
		"project_root":   e.ProjectRoot,
		"context":        maps.Clone(e.Context),
		"artifacts":      slices.Clone(e.Artifacts),
		"metadata":       maps.Clone(e.Metadata),
	}
	if e.Feature != "" {
		m["feature"] = e.Feature
	}
	return m
}

// Equal reports structural equality of two events, including the ID.
func (e Event) Equal(other Event) bool {
	return e.Type == other.Type &&
		e.ID == other.ID &&
		e.Timestamp == other.Timestamp &&
		e.SchemaVersion == other.SchemaVersion &&
		e.ProjectRoot == other.ProjectRoot &&
		e.Feature == other.Feature &&
		slices.Equal(e.Artifacts, other.Artifacts) &&
		reflect.DeepEqual(e.Context, other.Context) &&
		reflect.DeepEqual(e.Metadata, other.Metadata)
}

// extractString retrieves a string value from a JSON-unmarshaled map.
// Returns ("", false) if the key is missing or the value is not a string.
func extractString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// extractMap retrieves a nested map value.
func extractMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	nested, ok := v.(map[string]any)
	return nested, ok
}

// extractStringList retrieves a list of strings, accepting both []string and
// the []any shape produced by json.Unmarshal.
func extractStringList(m map[string]any, key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
