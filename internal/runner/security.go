package runner

import (
	"bytes"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/boshu2/hookfire/internal/hook"
)

// SecurityConfig bounds what one hook invocation may consume.
type SecurityConfig struct {
	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int64
	// MaxTimeout is the hard ceiling on a hook's effective timeout,
	// whatever the definition declares.
	MaxTimeout time.Duration
	// AllowNetwork is declared but not enforced: hooks inherit the
	// host's network access. There is no namespace-level isolation here.
	AllowNetwork bool
}

// DefaultSecurityConfig mirrors the limits enforced at config load.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxOutputBytes: 1 << 20,
		MaxTimeout:     hook.MaxTimeout * time.Second,
		AllowNetwork:   true,
	}
}

// TerminationPolicy controls how a timed-out hook process dies. The process
// group receives Term first; anything still alive after Grace receives Kill.
// A zero Grace skips straight to Kill.
type TerminationPolicy struct {
	Grace time.Duration
	Term  syscall.Signal
	Kill  syscall.Signal
}

func DefaultTerminationPolicy() TerminationPolicy {
	return TerminationPolicy{
		Grace: 5 * time.Second,
		Term:  syscall.SIGTERM,
		Kill:  syscall.SIGKILL,
	}
}

// envAllowlist is the only parent environment that reaches hook processes.
// Everything else the hook sees is its declared env plus the injected
// HOOKFIRE_* variables.
var envAllowlist = []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "LC_CTYPE"}

// Injected environment variable names.
const (
	EnvHook        = "HOOKFIRE_HOOK"
	EnvProjectRoot = "HOOKFIRE_PROJECT_ROOT"
	EnvEvent       = "HOOKFIRE_EVENT"
)

func allowlisted(key string) bool {
	for _, allowed := range envAllowlist {
		if key == allowed {
			return true
		}
	}
	return false
}

// mergeEnv builds the child environment: allowlisted parent variables,
// overlaid with the hook's declared env, overlaid with the injected set.
// The result is sorted for determinism.
func mergeEnv(parent []string, declared, injected map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range parent {
		key, value, ok := strings.Cut(kv, "=")
		if ok && allowlisted(key) {
			merged[key] = value
		}
	}
	for k, v := range declared {
		merged[k] = v
	}
	for k, v := range injected {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// cappedBuffer captures up to max bytes and discards the rest. Writes always
// report full success so the child process never blocks or errors on a full
// capture buffer.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remain := b.max - int64(b.buf.Len())
	switch {
	case remain >= int64(len(p)):
		b.buf.Write(p)
	case remain > 0:
		b.buf.Write(p[:remain])
		b.truncated = true
	default:
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
