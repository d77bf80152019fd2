package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout of the .hookfire project directory. Scripts must live under the
// hooks root; the audit log sits at a fixed relative path beneath it.
const (
	// Dir is the hookfire project directory name.
	Dir = ".hookfire"

	// HooksDirName is the hooks root directory under Dir.
	HooksDirName = "hooks"

	// AuditLogName is the audit log file name under the hooks root.
	AuditLogName = "audit.log"

	// LogsDirName is the operational logs directory under Dir.
	LogsDirName = "logs"

	// LogFileName is the operational log file name.
	LogFileName = "hookfire.log"

	// ToolConfigName is the tool config file name under Dir (and ~/.hookfire).
	ToolConfigName = "config.yaml"
)

// hooksConfigNames are the hooks config candidates, probed in order.
var hooksConfigNames = []string{"hooks.yaml", "hooks.yml"}

// HooksRoot returns the fixed hooks root for a project.
func HooksRoot(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, HooksDirName)
}

// AuditLogPath returns the audit log path for a project.
func AuditLogPath(projectRoot string) string {
	return filepath.Join(HooksRoot(projectRoot), AuditLogName)
}

// LogFilePath returns the operational log path for a project.
func LogFilePath(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, LogsDirName, LogFileName)
}

// ToolConfigPath returns the project-level tool config path.
func ToolConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, ToolConfigName)
}

// HooksConfigCandidates returns the hooks config paths probed in order.
func HooksConfigCandidates(projectRoot string) []string {
	paths := make([]string, 0, len(hooksConfigNames))
	for _, name := range hooksConfigNames {
		paths = append(paths, filepath.Join(projectRoot, Dir, name))
	}
	return paths
}

// FindHooksConfig returns the first existing hooks config path, or "" when
// none exists (an empty config, not an error).
func FindHooksConfig(projectRoot string) string {
	for _, path := range HooksConfigCandidates(projectRoot) {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// EnsureLayout creates the .hookfire directory tree for a project.
// Safe to call repeatedly.
func EnsureLayout(projectRoot string) error {
	dirs := []string{
		HooksRoot(projectRoot),
		filepath.Join(projectRoot, Dir, LogsDirName),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
