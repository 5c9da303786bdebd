// Package logtail reads the tail of the shell's log file for the TUI.
//
// Read keeps a ring buffer of the last N lines so large rotated files are
// scanned once without being held in memory. Parse turns a line written by
// slog's text handler into an Entry; lines it cannot decode come back with
// Raw set so the UI can still show them.
package logtail
