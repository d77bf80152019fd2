// Package config provides tool configuration and the on-disk layout for
// hookfire projects. Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (HOOKFIRE_*)
// 3. Project config (.hookfire/config.yaml in the project root)
// 4. Home config (~/.hookfire/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds tool-level settings. Hook definitions live in their own
// document (.hookfire/hooks.yaml) and are loaded by the hook package.
type Config struct {
	// Output controls the default output format (table, json).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Log settings for the operational log.
	Log LogConfig `yaml:"log" json:"log"`

	// Dispatch settings for background emission.
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`

	// Runner settings for hook execution ceilings.
	Runner RunnerConfig `yaml:"runner" json:"runner"`
}

// LogConfig tunes the rotated operational log. The audit log is separate and
// never rotated; rotation would sever its hash chain.
type LogConfig struct {
	// File is the operational log path. Empty means text logging to stderr.
	File string `yaml:"file" json:"file"`

	// Level is the minimum level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`

	// MaxSizeMB is the size in megabytes before rotation.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`

	// MaxBackups is how many rotated files to retain.
	MaxBackups int `yaml:"max_backups" json:"max_backups"`

	// MaxAgeDays is how many days to retain rotated files.
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"`

	// Compress controls gzip of rotated files. Defaults on; disable with
	// HOOKFIRE_LOG_NO_COMPRESS=1.
	Compress bool `yaml:"-" json:"-"`
}

// DispatchConfig tunes background dispatch.
type DispatchConfig struct {
	// Workers is the number of background dispatch workers.
	Workers int `yaml:"workers" json:"workers"`

	// Queue is the background queue capacity.
	Queue int `yaml:"queue" json:"queue"`
}

// RunnerConfig tunes per-hook execution limits.
type RunnerConfig struct {
	// MaxOutputKB caps captured stdout/stderr per stream, in kilobytes.
	MaxOutputKB int `yaml:"max_output_kb" json:"max_output_kb"`

	// GraceSeconds is the window between SIGTERM and SIGKILL on timeout.
	GraceSeconds int `yaml:"grace_seconds" json:"grace_seconds"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput      = "table"
	defaultLogLevel    = "info"
	defaultLogSizeMB   = 10
	defaultLogBackups  = 5
	defaultLogAgeDays  = 30
	defaultWorkers     = 2
	defaultQueue       = 64
	defaultMaxOutputKB = 1024
	defaultGraceSecs   = 5
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:  defaultOutput,
		Verbose: false,
		Log: LogConfig{
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogSizeMB,
			MaxBackups: defaultLogBackups,
			MaxAgeDays: defaultLogAgeDays,
			Compress:   true,
		},
		Dispatch: DispatchConfig{
			Workers: defaultWorkers,
			Queue:   defaultQueue,
		},
		Runner: RunnerConfig{
			MaxOutputKB:  defaultMaxOutputKB,
			GraceSeconds: defaultGraceSecs,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(projectRoot string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath(projectRoot))
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, Dir, ToolConfigName)
}

// projectConfigPath returns the project config path, honoring the
// HOOKFIRE_CONFIG override.
func projectConfigPath(projectRoot string) string {
	if override := strings.TrimSpace(os.Getenv("HOOKFIRE_CONFIG")); override != "" {
		return override
	}
	if projectRoot == "" {
		return ""
	}
	return ToolConfigPath(projectRoot)
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("HOOKFIRE_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("HOOKFIRE_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("HOOKFIRE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("HOOKFIRE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HOOKFIRE_LOG_NO_COMPRESS"); v == "true" || v == "1" {
		cfg.Log.Compress = false
	}
	if v := os.Getenv("HOOKFIRE_DISPATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.Workers = n
		}
	}
	if v := os.Getenv("HOOKFIRE_GRACE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Runner.GraceSeconds = n
		}
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Booleans have turn-on semantics; default-on booleans are env-disabled only.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeLog(&dst.Log, &src.Log)
	mergeDispatch(&dst.Dispatch, &src.Dispatch)
	mergeRunner(&dst.Runner, &src.Runner)

	return dst
}

// mergeLog merges operational-log config fields.
func mergeLog(dst, src *LogConfig) {
	mergeStr(&dst.File, src.File)
	mergeStr(&dst.Level, src.Level)
	mergeInt(&dst.MaxSizeMB, src.MaxSizeMB)
	mergeInt(&dst.MaxBackups, src.MaxBackups)
	mergeInt(&dst.MaxAgeDays, src.MaxAgeDays)
}

// mergeDispatch merges dispatch config fields.
func mergeDispatch(dst, src *DispatchConfig) {
	mergeInt(&dst.Workers, src.Workers)
	mergeInt(&dst.Queue, src.Queue)
}

// mergeRunner merges runner config fields.
func mergeRunner(dst, src *RunnerConfig) {
	mergeInt(&dst.MaxOutputKB, src.MaxOutputKB)
	mergeInt(&dst.GraceSeconds, src.GraceSeconds)
}
