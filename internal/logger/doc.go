// Package logger provides the leveled logger used across the disruptor.
//
// It keeps a small printf-style API on top of log/slog. Every entry may
// carry a subject, normally the disruption group, which is emitted as the
// "group" attribute.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Application started")
//	logger.Info("payments", "Lasting disruption started")
//	logger.Error("payments", "Failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("payments", "Starting delay of %dms", 200)
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// The level can be changed at runtime with SetLevel; ParseLevel accepts the
// names used by the CLI and configuration files.
//
// # Thread Safety
//
// All logging operations are safe for concurrent use.
package logger
