// Package logger provides levelled, structured logging for webpool.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each entry carries a timestamp, level, an optional scope ID (a worker
// name such as "worker-3" or a request ID) and the formatted message.
// Output is produced by logrus, either as key=value text or as JSON.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Listening on %s", addr)
//	logger.Info("worker-1", "got a job; executing")
//	logger.Error("worker-1", "Failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.SetFormat("json")
//	l.Debug("worker-0", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// All logging operations are safe for concurrent use.
package logger
