// Package dispatch connects events to hooks. Each emission loads the hooks
// config fresh, selects enabled hooks whose matchers accept the event, runs
// them one at a time in config order, and appends an audit entry per result.
//
// Config problems never propagate to the caller: a config that fails
// security or structural validation dispatches zero hooks and is logged. A
// failing hook stops the remainder only when its fail_mode says so.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/boshu2/hookfire/internal/audit"
	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/hook"
	"github.com/boshu2/hookfire/internal/runner"
	"github.com/boshu2/hookfire/internal/worker"
)

const (
	defaultQueueWorkers = 2
	defaultQueueDepth   = 64
)

// Dispatcher owns the emit pipeline for one project.
type Dispatcher struct {
	projectRoot  string
	runner       *runner.Runner
	audit        *audit.Logger
	log          *slog.Logger
	queueWorkers int
	queueDepth   int
	queue        *worker.Queue
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithRunner replaces the default hook runner.
func WithRunner(r *runner.Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// WithAuditLogger replaces the default audit logger.
func WithAuditLogger(l *audit.Logger) Option {
	return func(d *Dispatcher) { d.audit = l }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithQueueSize sizes the background queue used by EmitAsync.
func WithQueueSize(workers, depth int) Option {
	return func(d *Dispatcher) {
		d.queueWorkers = workers
		d.queueDepth = depth
	}
}

// New builds a Dispatcher rooted at projectRoot.
func New(projectRoot string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		projectRoot:  projectRoot,
		log:          slog.Default(),
		queueWorkers: defaultQueueWorkers,
		queueDepth:   defaultQueueDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runner == nil {
		d.runner = runner.New(projectRoot, runner.WithLogger(d.log))
	}
	if d.audit == nil {
		d.audit = audit.ForProject(projectRoot)
	}
	d.queue = worker.NewQueue(d.queueWorkers, d.queueDepth, func(recovered any) {
		d.log.Error("background dispatch panicked", "panic", recovered)
	})
	return d
}

// Emit runs every enabled hook matching the event, sequentially, and returns
// their results in execution order. A hook failing with fail_mode stop halts
// the rest; results obtained so far are still returned.
func (d *Dispatcher) Emit(ctx context.Context, ev event.Event) []hook.Result {
	cfg := d.loadConfig()
	matched := cfg.Match(ev)
	if len(matched) == 0 {
		d.log.Debug("no hooks matched", "event_type", ev.Type, "event_id", ev.ID)
		return nil
	}
	d.log.Debug("dispatching event", "event_type", ev.Type, "event_id", ev.ID, "hooks", len(matched))

	results := make([]hook.Result, 0, len(matched))
	for _, def := range matched {
		res := d.runner.Run(ctx, def, ev)
		results = append(results, res)
		d.record(ev, res)
		if !res.Success && def.FailMode == hook.FailModeStop {
			d.log.Warn("hook failed with fail_mode stop, halting remaining hooks",
				"hook", def.Name, "event_id", ev.ID)
			break
		}
	}
	return results
}

// EmitAsync queues the same sequential dispatch on a background worker. The
// caller gets no results; outcomes land in the audit log. Events submitted
// after Close are dropped and logged.
func (d *Dispatcher) EmitAsync(ev event.Event) {
	accepted := d.queue.Submit(func() {
		d.Emit(context.Background(), ev)
	})
	if !accepted {
		d.log.Warn("dispatcher closed, event dropped", "event_type", ev.Type, "event_id", ev.ID)
	}
}

// Close stops accepting async emissions and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.queue.Close()
}

// loadConfig reads the hooks config fresh. Any load failure degrades to an
// empty config so a bad file can never make hooks run.
func (d *Dispatcher) loadConfig() *hook.Config {
	cfg, err := hook.Load(d.projectRoot)
	if err != nil {
		var secErr *hook.SecurityError
		var valErr *hook.ValidationError
		if errors.As(err, &secErr) || errors.As(err, &valErr) {
			d.log.Error("hooks config rejected, no hooks will run", "error", err)
		} else {
			d.log.Warn("hooks config unavailable, no hooks will run", "error", err)
		}
		return &hook.Config{}
	}
	return cfg
}

func (d *Dispatcher) record(ev event.Event, res hook.Result) {
	entry := audit.Entry{
		EventID:    ev.ID,
		EventType:  ev.Type,
		HookName:   res.HookName,
		Success:    res.Success,
		ExitCode:   res.ExitCode,
		DurationMS: res.DurationMS,
		Error:      res.Error,
	}
	if _, err := d.audit.Append(entry); err != nil {
		d.log.Error("audit append failed", "hook", res.HookName, "event_id", ev.ID, "error", err)
	}
}
