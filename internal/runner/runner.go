// Package runner executes hooks as child processes under the security
// policy: re-validated paths, a minimal environment, capped output, and
// process-group termination on timeout.
//
// Run never returns an error. Every failure mode, the runner's own included,
// becomes a Result with exit code -1 and the failure in Error, so one broken
// hook can never take down a dispatch.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/boshu2/hookfire/internal/config"
	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/hook"
	"github.com/boshu2/hookfire/internal/safety"
	"github.com/boshu2/hookfire/internal/webhook"
)

// state names one phase of a hook invocation. Transitions are logged at
// debug level for dispatch forensics.
type state string

const (
	statePending    state = "pending"
	stateValidating state = "validating"
	stateRunning    state = "running"
	stateSucceeded  state = "succeeded"
	stateFailed     state = "failed"
	stateTimedOut   state = "timed_out"
	stateError      state = "error"
	stateTermSent   state = "term_sent"
	stateKilled     state = "killed"
)

// Runner executes hook definitions against a project.
type Runner struct {
	projectRoot string
	hooksRoot   string
	sec         SecurityConfig
	term        TerminationPolicy
	log         *slog.Logger
	webhooks    *webhook.Client
	environ     func() []string
}

type Option func(*Runner)

func WithSecurityConfig(sc SecurityConfig) Option {
	return func(r *Runner) { r.sec = sc }
}

func WithTerminationPolicy(tp TerminationPolicy) Option {
	return func(r *Runner) { r.term = tp }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func WithWebhookClient(c *webhook.Client) Option {
	return func(r *Runner) { r.webhooks = c }
}

// WithEnviron replaces the parent environment source, os.Environ by default.
func WithEnviron(fn func() []string) Option {
	return func(r *Runner) { r.environ = fn }
}

func New(projectRoot string, opts ...Option) *Runner {
	r := &Runner{
		projectRoot: projectRoot,
		hooksRoot:   config.HooksRoot(projectRoot),
		sec:         DefaultSecurityConfig(),
		term:        DefaultTerminationPolicy(),
		log:         slog.Default(),
		webhooks:    webhook.NewClient(),
		environ:     os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one hook for one event and reports the outcome. Script paths
// and working directories are validated again here, not just at config load,
// so a file swapped in after validation still cannot escape the project.
func (r *Runner) Run(ctx context.Context, def hook.Definition, ev event.Event) hook.Result {
	start := time.Now()
	res := hook.Result{HookName: def.Name, ExitCode: -1}
	finish := func(s state) hook.Result {
		res.DurationMS = time.Since(start).Milliseconds()
		r.transition(def.Name, s)
		return res
	}

	r.transition(def.Name, statePending)
	r.transition(def.Name, stateValidating)

	method, err := def.ResolveMethod()
	if err != nil {
		res.Error = err.Error()
		return finish(stateError)
	}

	timeout := r.effectiveTimeout(def.Timeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch method {
	case hook.MethodWebhook:
		r.transition(def.Name, stateRunning)
		res = r.webhooks.Deliver(runCtx, def.Name, def.Webhook, ev)
		if !res.Success && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.ExitCode = -1
			res.Error = timeoutMessage(timeout)
			return finish(stateTimedOut)
		}
		if res.Success {
			return finish(stateSucceeded)
		}
		return finish(stateFailed)

	case hook.MethodScript:
		scriptPath, err := hook.ValidateScriptPath(r.hooksRoot, def.Script)
		if err != nil {
			res.Error = err.Error()
			return finish(stateError)
		}
		warnings, contentHash, err := safety.ScanFile(scriptPath)
		if err != nil {
			res.Error = err.Error()
			return finish(stateError)
		}
		r.reportFindings(def.Name, contentHash, warnings)
		return finish(r.execProcess(runCtx, &res, def, ev, []string{scriptPath}, timeout))

	case hook.MethodCommand:
		content := []byte(def.Command)
		r.reportFindings(def.Name, safety.ContentHash(content), safety.Scan(content))
		shell := def.Shell
		if shell == "" {
			shell = hook.DefaultShell
		}
		return finish(r.execProcess(runCtx, &res, def, ev, []string{shell, "-c", def.Command}, timeout))
	}

	res.Error = fmt.Sprintf("unsupported execution method %q", method)
	return finish(stateError)
}

// execProcess runs argv in the hook's working directory with the minimal
// environment and fills res from the outcome, returning the final state.
func (r *Runner) execProcess(ctx context.Context, res *hook.Result, def hook.Definition, ev event.Event, argv []string, timeout time.Duration) state {
	workDir, err := hook.ResolveWorkingDir(r.projectRoot, def.WorkingDirectory)
	if err != nil {
		res.Error = err.Error()
		return stateError
	}

	eventJSON, err := json.Marshal(ev.Map())
	if err != nil {
		res.Error = fmt.Sprintf("encode event: %v", err)
		return stateError
	}
	injected := map[string]string{
		EnvHook:        def.Name,
		EnvProjectRoot: r.projectRoot,
		EnvEvent:       string(eventJSON),
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Env = mergeEnv(r.environ(), def.Env, injected)

	stdout := &cappedBuffer{max: r.sec.MaxOutputBytes}
	stderr := &cappedBuffer{max: r.sec.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Own process group, so termination reaches the hook's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return r.terminate(cmd, def.Name)
	}

	r.transition(def.Name, stateRunning)
	runErr := cmd.Run()

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if stdout.truncated || stderr.truncated {
		r.log.Warn("hook output truncated", "hook", def.Name, "limit_bytes", r.sec.MaxOutputBytes)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		res.Error = timeoutMessage(timeout)
		return stateTimedOut
	}
	if runErr == nil {
		res.Success = true
		res.ExitCode = 0
		return stateSucceeded
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			res.ExitCode = code
			return stateFailed
		}
		// died on a signal outside the timeout path
		res.ExitCode = -1
		res.Error = runErr.Error()
		return stateError
	}

	// start failure: missing interpreter, permission, bad working directory
	res.ExitCode = -1
	res.Error = runErr.Error()
	return stateError
}

// terminate signals the hook's process group. With a positive grace period
// the group gets Term first and a background escalation to Kill; with zero
// grace it gets Kill immediately.
func (r *Runner) terminate(cmd *exec.Cmd, hookName string) error {
	pgid := -cmd.Process.Pid
	if r.term.Grace <= 0 {
		r.transition(hookName, stateKilled)
		return syscall.Kill(pgid, r.term.Kill)
	}

	r.transition(hookName, stateTermSent)
	if err := syscall.Kill(pgid, r.term.Term); err != nil {
		// group already gone or unsignalable, escalate
		return syscall.Kill(pgid, r.term.Kill)
	}
	go func() {
		time.Sleep(r.term.Grace)
		// ESRCH from an exited group is harmless
		if syscall.Kill(pgid, r.term.Kill) == nil {
			r.transition(hookName, stateKilled)
		}
	}()
	return nil
}

func (r *Runner) effectiveTimeout(declared int) time.Duration {
	t := time.Duration(declared) * time.Second
	if t <= 0 {
		t = hook.DefaultTimeout * time.Second
	}
	if t > r.sec.MaxTimeout {
		t = r.sec.MaxTimeout
	}
	return t
}

func (r *Runner) reportFindings(hookName, contentHash string, warnings []safety.Warning) {
	r.log.Debug("hook content", "hook", hookName, "sha256", contentHash)
	for _, w := range warnings {
		r.log.Warn("advisory content finding",
			"hook", hookName, "label", w.Label, "line", w.Line, "excerpt", w.Excerpt)
	}
}

func (r *Runner) transition(hookName string, s state) {
	r.log.Debug("hook state", "hook", hookName, "state", string(s))
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("timed out after %ds", int(timeout/time.Second))
}
