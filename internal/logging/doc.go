// Package logging provides structured logging utilities for availsync.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (calendar IDs that are personal email addresses)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Install the process-wide logger once at startup:
//
//	if err := logging.Setup(os.Stderr, "info", "text"); err != nil {
//	    return err
//	}
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "availability.sync")
//	logger.Info("sync finished",
//	    logging.Calendar(target),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Calendar IDs that are user email addresses are hashed before logging
//   - Tokens are never logged directly
package logging
