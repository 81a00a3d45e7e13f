// Package ui renders terminal output for the cgd1 CLI.
//
// Output follows a "run once and exit" pattern: commands build a report
// string with the Render* functions and print it through a Printer. The only
// long-running component is the ringtone upload progress bar, which is a
// Bubble Tea program fed by the device's progress callback.
//
// When stdout is not a terminal, progress is reported as plain lines so the
// output stays readable in logs and pipes.
//
// # Logging Integration
//
// Logging is controlled via the --log-level flag or CGD1_LOG_LEVEL. When
// both are unset zap is silent and only the curated UI output is shown.
package ui
