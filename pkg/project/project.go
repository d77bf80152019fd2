// Package project locates the hookfire project root on disk.
package project

import (
	"os"
	"path/filepath"
)

// MarkerDir is the directory that marks a hookfire project root.
const MarkerDir = ".hookfire"

// Find walks up from startDir looking for a directory containing .hookfire.
// Returns the project root and true if found, "" and false otherwise.
// An empty startDir means the current working directory.
func Find(startDir string) (string, bool) {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "", false
		}
	}

	dir := startDir
	for {
		marker := filepath.Join(dir, MarkerDir)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}

	return "", false
}

// IsProject returns true if dir is inside a hookfire project.
func IsProject(dir string) bool {
	_, ok := Find(dir)
	return ok
}
