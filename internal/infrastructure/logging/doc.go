// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Sandboxed console output is mirrored to the "sandbox" child logger at
// debug level, tagged with the run id.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.WithSession("abc").Error("Failed to save state", zap.Error(err))
package logging
