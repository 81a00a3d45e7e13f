// Package logging provides structured logging for the cgd1 tools.
//
// This package wraps a global zap logger with convenience functions. Logging
// is silent unless a level is passed to Initialize or the CGD1_LOG_LEVEL
// environment variable is set, so CLI output is never interleaved with log
// lines by default.
//
// # Log Levels
//
//   - Debug: wire frames (hex), ack arming/resolution, snapshot assembly
//   - Info: connect, authenticate, disconnect, uploads
//   - Warn: retries, unmatched acks, dropped events
//   - Error: failed operations
//
// # Wire Frames
//
// Frames are logged with LogFrame at debug level only:
//
//	logging.LogFrame(log, "tx", "cfg-write", frame)
//
// # File Output
//
// InitializeWithFile tees the console output into a JSON file rotated by
// lumberjack:
//
//	err := logging.InitializeWithFile("debug", logging.FileOptions{
//	    Filename:  "/var/log/cgd1.log",
//	    MaxSizeMB: 10,
//	})
//	defer logging.Sync()
package logging
