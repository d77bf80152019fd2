package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/boshu2/hookfire/internal/audit"
	"github.com/boshu2/hookfire/internal/formatter"
)

var auditTailN int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify and read the execution audit log",
	Long: `Work with the tamper-evident audit log of hook executions.

Examples:
  hf audit verify
  hf audit tail -n 50`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log hash chain",
	Long: `Replay the audit log and recompute every entry hash. An edited,
inserted, or deleted line flags itself and every line after it. Exits
non-zero when anomalies exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()
		cfg := loadToolConfig(root)

		result, err := audit.ForProject(root).Verify()
		if err != nil {
			return err
		}
		if err := outputVerifyResult(os.Stdout, cfg.Output, result); err != nil {
			return err
		}
		if !result.Pass {
			return fmt.Errorf("audit chain verification failed: %d anomaly(ies)", len(result.Anomalies))
		}
		return nil
	},
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit entries",
	Long: `Show the most recent audit entries, newest first. JSON output is one
entry per line, matching the log's own format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveProjectRoot()
		cfg := loadToolConfig(root)

		entries, err := audit.ForProject(root).Recent(auditTailN)
		if err != nil {
			return err
		}
		return outputAuditEntries(os.Stdout, cfg.Output, entries)
	},
}

func init() {
	auditTailCmd.Flags().IntVarP(&auditTailN, "limit", "n", 20, "Number of entries to show (0 = all)")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}

func outputVerifyResult(w io.Writer, format string, result audit.VerifyResult) error {
	switch format {
	case "json":
		return formatter.JSON(w, result)

	default: // table
		if result.Pass {
			fmt.Fprintf(w, "ok: %d entry(ies), chain intact\n", result.Entries)
			return nil
		}
		for _, a := range result.Anomalies {
			fmt.Fprintf(w, "anomaly: %s\n", a)
		}
		fmt.Fprintf(w, "%d entry(ies), %d anomaly(ies)\n", result.Entries, len(result.Anomalies))
		return nil
	}
}

func outputAuditEntries(w io.Writer, format string, entries []audit.Entry) error {
	switch format {
	case "json":
		return formatter.JSONLines(w, entries)

	default: // table
		if len(entries) == 0 {
			fmt.Fprintln(w, "No audit entries")
			return nil
		}

		tbl := formatter.NewTable(w, "TIME", "EVENT", "HOOK", "STATUS", "EXIT", "DURATION", "ERROR")
		tbl.SetMaxWidth(6, 40)
		for _, e := range entries {
			tbl.AddRow(
				e.Timestamp,
				e.EventType,
				e.HookName,
				statusWord(e.Success),
				strconv.Itoa(e.ExitCode),
				fmt.Sprintf("%dms", e.DurationMS),
				e.Error,
			)
		}
		return tbl.Render()
	}
}
