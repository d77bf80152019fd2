// Package oplog builds the operational logger: structured slog output to a
// rotated file for dispatch/runner diagnostics. This log is advisory and
// separate from the audit log, which is append-only and never rotated.
package oplog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/boshu2/hookfire/internal/config"
)

// New builds a logger from operational log settings. A configured file gets a
// JSON handler over a rotating writer; otherwise logs go to stderr as text.
func New(cfg config.LogConfig) *slog.Logger {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(rotatingWriter(cfg), opts))
}

// ForProject builds the logger for a project root, defaulting the file to
// .hookfire/logs/hookfire.log when no explicit file is configured.
func ForProject(projectRoot string, cfg config.LogConfig) *slog.Logger {
	if cfg.File == "" && projectRoot != "" {
		cfg.File = config.LogFilePath(projectRoot)
	}
	return New(cfg)
}

// ParseLevel maps a config level string to a slog level. Unknown values
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rotatingWriter builds the lumberjack writer for the operational log.
// Falls back to stderr when the log directory cannot be created.
func rotatingWriter(cfg config.LogConfig) io.Writer {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
