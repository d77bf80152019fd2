package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/hookfire/internal/config"
	"github.com/boshu2/hookfire/internal/formatter"
	"github.com/boshu2/hookfire/internal/hook"
	"github.com/boshu2/hookfire/internal/safety"
	"github.com/boshu2/hookfire/internal/worker"
)

var hooksScanWorkers int

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Inspect and validate configured hooks",
	Long: `Inspect the hooks configured for this project.

Examples:
  hf hooks list
  hf hooks validate
  hf hooks scan`,
}

var hooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured hooks",
	Long: `List every hook in .hookfire/hooks.yaml with its events, execution
method, timeout, and fail mode.

Examples:
  hf hooks list
  hf hooks list --output=json
  hf hooks list --output=markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()
		cfg := loadToolConfig(root)

		hooksCfg, err := hook.Load(root)
		if err != nil {
			return fmt.Errorf("load hooks config: %w", err)
		}
		return outputHooksList(os.Stdout, cfg.Output, root, hooksCfg.Hooks)
	},
}

var hooksValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the hooks config",
	Long: `Run the full fail-closed load: structural problems and security
violations are all collected and printed, not just the first. Exits
non-zero when the config is rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()

		hooksCfg, err := hook.Load(root)
		if err == nil {
			fmt.Printf("ok: %d hook(s) valid\n", len(hooksCfg.Hooks))
			return nil
		}
		printFindings(os.Stdout, err)
		return errors.New("hooks config rejected")
	},
}

var hooksScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan hook scripts for destructive patterns",
	Long: `Advisory scan of every script in the hooks root. Findings are
warnings, never errors: the exit code stays zero so a scan can run in CI
without blocking. Each file is reported with its content hash so reviewed
versions can be pinned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()
		cfg := loadToolConfig(root)
		hooksRoot := config.HooksRoot(root)

		scripts, err := collectScripts(hooksRoot)
		if err != nil {
			return err
		}
		reports := scanScripts(scripts, hooksScanWorkers)
		return outputScanReports(os.Stdout, cfg.Output, hooksRoot, reports)
	},
}

func init() {
	hooksScanCmd.Flags().IntVar(&hooksScanWorkers, "workers", 0, "Scan concurrency (default: number of CPUs)")

	hooksCmd.AddCommand(hooksListCmd)
	hooksCmd.AddCommand(hooksValidateCmd)
	hooksCmd.AddCommand(hooksScanCmd)
	rootCmd.AddCommand(hooksCmd)
}

func outputHooksList(w io.Writer, format, root string, hooks []hook.Definition) error {
	switch format {
	case "json":
		return formatter.JSON(w, hooks)

	case "markdown":
		return formatter.NewMarkdownFormatter().Format(w, filepath.Base(root), hooks)

	default: // table
		if len(hooks) == 0 {
			fmt.Fprintln(w, "No hooks configured")
			return nil
		}

		tbl := formatter.NewTable(w, "NAME", "EVENTS", "METHOD", "TARGET", "TIMEOUT", "FAIL MODE", "ENABLED")
		tbl.SetMaxWidth(1, 40)
		tbl.SetMaxWidth(3, 40)
		for _, d := range hooks {
			method, target := methodCell(d)
			tbl.AddRow(
				d.Name,
				eventsCell(d),
				method,
				target,
				strconv.Itoa(d.Timeout)+"s",
				d.FailMode,
				enabledCell(d.Enabled),
			)
		}
		return tbl.Render()
	}
}

func eventsCell(d hook.Definition) string {
	labels := make([]string, 0, len(d.Matchers))
	for _, m := range d.Matchers {
		label := m.Type
		if len(m.Filters) > 0 {
			label += "+filters"
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ",")
}

func methodCell(d hook.Definition) (string, string) {
	method, err := d.ResolveMethod()
	if err != nil {
		return "invalid", ""
	}
	switch method {
	case hook.MethodScript:
		return method.String(), d.Script
	case hook.MethodCommand:
		return method.String(), d.Command
	case hook.MethodWebhook:
		return method.String(), d.Webhook.URL
	default:
		return "invalid", ""
	}
}

func enabledCell(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}

// printFindings renders every violation and problem from a rejected load.
func printFindings(w io.Writer, err error) {
	var secErr *hook.SecurityError
	if errors.As(err, &secErr) {
		for _, v := range secErr.Violations {
			fmt.Fprintf(w, "violation: %s\n", v)
		}
	}
	var valErr *hook.ValidationError
	if errors.As(err, &valErr) {
		for _, p := range valErr.Problems {
			fmt.Fprintf(w, "problem: %s\n", p)
		}
	}
	if secErr == nil && valErr == nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

// scanReport is the per-file outcome of an advisory scan.
type scanReport struct {
	Path     string           `json:"path"`
	Hash     string           `json:"sha256,omitempty"`
	Warnings []safety.Warning `json:"warnings,omitempty"`
	Err      string           `json:"error,omitempty"`
}

// collectScripts lists every regular file under the hooks root, skipping the
// audit log and lock files that share the directory.
func collectScripts(hooksRoot string) ([]string, error) {
	var scripts []string
	err := filepath.WalkDir(hooksRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == config.AuditLogName || strings.HasSuffix(name, ".lock") {
			return nil
		}
		scripts = append(scripts, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("walk hooks root: %w", err)
	}
	return scripts, nil
}

// scanScripts fans the files out across the worker pool.
func scanScripts(paths []string, workers int) []scanReport {
	pool := worker.NewPool[string, scanReport](workers)
	results := pool.Process(paths, func(path string) (scanReport, error) {
		warnings, hash, err := safety.ScanFile(path)
		report := scanReport{Path: path, Hash: hash, Warnings: warnings}
		if err != nil {
			report.Err = err.Error()
		}
		return report, nil
	})

	reports := make([]scanReport, 0, len(results))
	for _, r := range results {
		reports = append(reports, r.Value)
	}
	return reports
}

func outputScanReports(w io.Writer, format, hooksRoot string, reports []scanReport) error {
	for i := range reports {
		if rel, err := filepath.Rel(hooksRoot, reports[i].Path); err == nil {
			reports[i].Path = rel
		}
	}

	switch format {
	case "json":
		return formatter.JSON(w, reports)

	default: // table
		if len(reports) == 0 {
			fmt.Fprintln(w, "No scripts found")
			return nil
		}

		findings := 0
		for _, rep := range reports {
			fmt.Fprintf(w, "%s  %s\n", shortHash(rep.Hash), rep.Path)
			if rep.Err != "" {
				fmt.Fprintf(w, "  error: %s\n", rep.Err)
				continue
			}
			for _, warn := range rep.Warnings {
				findings++
				fmt.Fprintf(w, "  warning: %s\n", warn)
			}
		}
		if findings == 0 {
			fmt.Fprintf(w, "%d script(s) scanned, no findings\n", len(reports))
		} else {
			fmt.Fprintf(w, "%d script(s) scanned, %d finding(s)\n", len(reports), findings)
		}
		return nil
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
