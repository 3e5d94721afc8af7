// Package fsops implements the sandboxed filesystem operations: reads,
// atomic writes, deletes, moves, line-based edits with diff generation,
// streaming tree listing and search. Every entry point resolves and
// authorizes its paths through the sandbox policy before touching the OS.
package fsops
