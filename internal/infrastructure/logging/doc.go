// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that CLI output on stdout stays clean.
// Components accept a *Logger and fall back to a no-op logger via OrNop.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Session submitted", zap.String("generation_id", id))
//	logger.Warn("History refresh failed", zap.Error(err))
package logging
