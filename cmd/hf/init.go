package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/hookfire/embedded"
	"github.com/boshu2/hookfire/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up .hookfire in the current project",
	Long: `Create the .hookfire directory tree with a starter hooks.yaml and a
sample hook script. Idempotent: existing files are never overwritten.

Examples:
  hf init
  hf init --project=/path/to/repo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := projectFlag
		if root == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			root = cwd
		}
		return runInit(os.Stdout, root)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// runInit creates the project layout and writes the starter files, keeping
// anything that already exists.
func runInit(w io.Writer, root string) error {
	if err := config.EnsureLayout(root); err != nil {
		return err
	}

	if existing := config.FindHooksConfig(root); existing != "" {
		fmt.Fprintf(w, "kept %s\n", relToRoot(root, existing))
	} else {
		configPath := filepath.Join(root, config.Dir, "hooks.yaml")
		if err := os.WriteFile(configPath, embedded.StarterConfig, 0o644); err != nil {
			return fmt.Errorf("write starter config: %w", err)
		}
		fmt.Fprintf(w, "created %s\n", relToRoot(root, configPath))
	}

	hooksRoot := config.HooksRoot(root)
	err := fs.WalkDir(embedded.StarterHooks, "hooks", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "hooks" {
			return nil
		}
		rel := strings.TrimPrefix(path, "hooks/")
		dest := filepath.Join(hooksRoot, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(w, "kept %s\n", relToRoot(root, dest))
			return nil
		}

		data, err := embedded.StarterHooks.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(dest, data, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Fprintf(w, "created %s\n", relToRoot(root, dest))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "hookfire ready; try: hf emit task.completed")
	return nil
}

func relToRoot(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
