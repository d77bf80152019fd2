package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/hookfire/internal/config"
	"github.com/boshu2/hookfire/internal/dispatch"
	"github.com/boshu2/hookfire/internal/event"
	"github.com/boshu2/hookfire/internal/formatter"
	"github.com/boshu2/hookfire/internal/hook"
	"github.com/boshu2/hookfire/internal/runner"
)

var (
	emitFeature   string
	emitContext   []string
	emitMeta      []string
	emitArtifacts []string
	emitEventID   string
	emitAsync     bool
)

var emitCmd = &cobra.Command{
	Use:   "emit <event-type>",
	Short: "Fire an event and run matching hooks",
	Long: `Fire a lifecycle event and run every enabled hook that matches it.

Hooks run sequentially in config order. Each execution is appended to the
audit log regardless of outcome. The command exits non-zero when any hook
failed.

Examples:
  hf emit task.completed
  hf emit spec.created --feature=checkout --context=author=ina
  hf emit release.tagged --artifact=dist/app.tar.gz --async`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()
		cfg := loadToolConfig(root)

		ctxMap, err := parseKeyValues(emitContext)
		if err != nil {
			return fmt.Errorf("invalid --context: %w", err)
		}
		metaMap, err := parseKeyValues(emitMeta)
		if err != nil {
			return fmt.Errorf("invalid --meta: %w", err)
		}

		var opts []event.Option
		if emitEventID != "" {
			opts = append(opts, event.WithID(emitEventID))
		}
		if emitFeature != "" {
			opts = append(opts, event.WithFeature(emitFeature))
		}
		if len(ctxMap) > 0 {
			opts = append(opts, event.WithContext(ctxMap))
		}
		if len(metaMap) > 0 {
			opts = append(opts, event.WithMetadata(metaMap))
		}
		if len(emitArtifacts) > 0 {
			opts = append(opts, event.WithArtifacts(emitArtifacts...))
		}
		ev := event.New(args[0], root, opts...)

		d := dispatch.New(root,
			dispatch.WithRunner(runnerFromConfig(root, cfg)),
			dispatch.WithQueueSize(cfg.Dispatch.Workers, cfg.Dispatch.Queue),
		)
		defer d.Close()

		if emitAsync {
			d.EmitAsync(ev)
			fmt.Printf("queued event %s (%s)\n", ev.ID, ev.Type)
			return nil
		}

		results := d.Emit(cmd.Context(), ev)
		if err := outputEmitResults(os.Stdout, cfg.Output, ev, results); err != nil {
			return err
		}
		if failed := countFailed(results); failed > 0 {
			return fmt.Errorf("%d hook(s) failed", failed)
		}
		return nil
	},
}

func init() {
	emitCmd.Flags().StringVar(&emitFeature, "feature", "", "Feature name attached to the event")
	emitCmd.Flags().StringArrayVar(&emitContext, "context", nil, "Context field as key=value (repeatable)")
	emitCmd.Flags().StringArrayVar(&emitMeta, "meta", nil, "Metadata field as key=value (repeatable)")
	emitCmd.Flags().StringArrayVar(&emitArtifacts, "artifact", nil, "Artifact path attached to the event (repeatable)")
	emitCmd.Flags().StringVar(&emitEventID, "event-id", "", "Explicit event ID (default: generated)")
	emitCmd.Flags().BoolVar(&emitAsync, "async", false, "Queue the dispatch in the background and drain before exit")

	rootCmd.AddCommand(emitCmd)
}

// runnerFromConfig builds the hook runner with tool-config ceilings applied.
func runnerFromConfig(projectRoot string, cfg *config.Config) *runner.Runner {
	sec := runner.DefaultSecurityConfig()
	if cfg.Runner.MaxOutputKB > 0 {
		sec.MaxOutputBytes = int64(cfg.Runner.MaxOutputKB) * 1024
	}
	tp := runner.DefaultTerminationPolicy()
	tp.Grace = time.Duration(cfg.Runner.GraceSeconds) * time.Second

	return runner.New(projectRoot,
		runner.WithSecurityConfig(sec),
		runner.WithTerminationPolicy(tp),
	)
}

// parseKeyValues parses repeated key=value flag values into a map.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		m[key] = value
	}
	return m, nil
}

func countFailed(results []hook.Result) int {
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	return failed
}

func statusWord(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func outputEmitResults(w io.Writer, format string, ev event.Event, results []hook.Result) error {
	switch format {
	case "json":
		return formatter.JSON(w, results)

	default: // table
		if len(results) == 0 {
			fmt.Fprintf(w, "No hooks matched %s\n", ev.Type)
			return nil
		}

		tbl := formatter.NewTable(w, "HOOK", "STATUS", "EXIT", "DURATION", "ERROR")
		tbl.SetMaxWidth(4, 48)
		for _, res := range results {
			tbl.AddRow(
				res.HookName,
				statusWord(res.Success),
				strconv.Itoa(res.ExitCode),
				fmt.Sprintf("%dms", res.DurationMS),
				res.Error,
			)
		}
		return tbl.Render()
	}
}
