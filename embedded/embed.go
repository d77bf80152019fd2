// Package embedded provides the starter hooks config and sample scripts
// written by `hf init` into a fresh .hookfire directory.
package embedded

import "embed"

// StarterConfig is the hooks.yaml written for a new project.
//
//go:embed hooks.yaml
var StarterConfig []byte

// StarterHooks contains the sample hook scripts extracted into
// .hookfire/hooks/. Use fs.WalkDir to write them to disk.
//
//go:embed all:hooks
var StarterHooks embed.FS
