package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/hookfire/internal/config"
	"github.com/boshu2/hookfire/internal/oplog"
	"github.com/boshu2/hookfire/pkg/project"
)

var (
	// Global flags
	projectFlag string
	verbose     bool
	output      string
	cfgFile     string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hf",
	Short: "Event-driven hook automation",
	Long: `hf runs pre-approved hooks when project events fire.

Hooks are declared in .hookfire/hooks.yaml and execute scripts from
.hookfire/hooks/, inline shell commands, or webhooks. Every execution is
recorded in a tamper-evident audit log.

Get Started:
  init         Set up .hookfire in the current project
  emit         Fire an event and run matching hooks

Core Commands:
  hooks        List, validate, and scan configured hooks
  audit        Verify and read the execution audit log
  version      Show version information`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
		configureLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project root (default: nearest ancestor with .hookfire)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Tool config file (default: .hookfire/config.yaml)")
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints only when verbose mode is enabled.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// resolveProjectRoot returns the project root for this invocation: the
// --project flag when set, else the nearest ancestor containing .hookfire,
// else the working directory.
func resolveProjectRoot() string {
	if projectFlag != "" {
		return projectFlag
	}
	if root, ok := project.Find(""); ok {
		return root
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// loadToolConfig resolves tool settings with flags taking top precedence.
func loadToolConfig(projectRoot string) *config.Config {
	overrides := &config.Config{Output: output, Verbose: verbose}
	cfg, err := config.Load(projectRoot, overrides)
	if err != nil || cfg == nil {
		return config.Default()
	}
	return cfg
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("HOOKFIRE_CONFIG", path)
}

// configureLogging installs the default slog logger: verbose gets debug text
// on stderr, otherwise the rotated operational log file.
func configureLogging() {
	root := resolveProjectRoot()
	cfg := loadToolConfig(root)
	if cfg.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return
	}
	slog.SetDefault(oplog.ForProject(root, cfg.Log))
}
