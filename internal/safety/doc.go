// Package safety centralizes the threat model behind hook validation and the
// advisory content scanner for hook scripts.
//
// Hookfire executes user-authored scripts and commands in response to
// lifecycle events, so every hook definition is untrusted input until it has
// passed validation. The enforcement itself lives where the data flows (the
// hook loader and the runner); this package documents the model and provides
// the pattern scanner those layers share.
//
// # Threat Model
//
// T1 - Command Injection via Environment: Hook env values flow into a child
// shell's environment and from there into whatever the script interpolates.
// Crafted values containing semicolons, pipes, backticks, dollar signs, or
// redirections could smuggle commands through an otherwise approved hook.
// Mitigation: the loader rejects any env value containing a shell
// metacharacter, naming the offending character, and the whole config fails
// closed.
//
// T2 - Path Traversal: Script references and working directories come from
// the hooks config and could escape the project via ".." segments, absolute
// paths, tilde expansion, or symlink chains. Mitigations: lexical checks run
// before any file I/O (absolute paths, parent segments, and tilde prefixes
// are rejected without touching the filesystem), then symlink-resolving
// canonicalization confines scripts to the hooks root and working
// directories to the project root. The runner repeats the checks at
// execution time so a config validated earlier cannot be swapped underneath
// a dispatch.
//
// T3 - Destructive Script Payloads: A pre-approved script can still contain
// catastrophic commands, whether authored carelessly or planted. Mitigation:
// the content scanner flags known-destructive patterns (recursive deletion
// of root or home, raw device writes, filesystem creation, fork bombs,
// world-writable permission grants, piping downloads into a shell,
// decode-and-execute chains). Findings are advisory: they are reported and
// logged, never blocking, because pattern matching on shell text cannot be
// made sound and a false positive must not break a release pipeline.
//
// T4 - Environment Leakage: The parent process environment carries secrets
// (tokens, cloud credentials) that hooks have no business reading.
// Mitigation: hook processes receive a minimal allowlist (PATH, HOME, USER,
// LANG, LC_ALL, LC_CTYPE) plus the hook's declared env and the injected
// HOOKFIRE_* variables, and nothing else.
//
// T5 - Runaway Hooks: A hung script would stall dispatch indefinitely and an
// output flood would exhaust memory. Mitigations: per-hook timeouts with a
// hard ceiling, process-group termination with SIGTERM then SIGKILL
// escalation so grandchildren cannot linger, and capped capture buffers for
// stdout and stderr.
//
// T6 - Audit Tampering: An actor who can edit the audit log could hide what
// hooks ran. Mitigation: every audit entry carries a hash chained to its
// predecessor, so any edit, insertion, or deletion invalidates every entry
// from that line forward and verification reports the exact lines.
//
// # Design Principles
//
// Fail closed on configuration: one violation anywhere in the hooks config
// rejects the entire config, including hooks that were themselves clean.
//
// Fail open on advisory findings: scanner warnings inform, they never block.
// Only validation findings stop execution.
//
// The runner never raises: every failure mode, including the runner's own,
// becomes a result with exit code -1 and an error message, so one broken
// hook cannot take down a dispatch.
package safety
