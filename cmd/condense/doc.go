// Package main hosts the condense CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes each pipeline stage on its own
// (split, infer, merge), the full two-pass run, transcript extraction, the
// inbox watcher, and maintenance commands for configuration and scratch
// space. It centralizes configuration resolution and structured logging setup
// so subcommands only translate flags into calls on the internal packages.
//
// Exit status is non-zero on any failure; the value encodes the error class
// (2 config, 3 io, 4 backend, 5 data, 1 anything else).
package main
