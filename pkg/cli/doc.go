// Package cli holds helpers shared by the sentinel commands: typed command
// errors with exit codes, text and JSON output, signal handling, and a
// progress indicator for blocking research.
package cli
