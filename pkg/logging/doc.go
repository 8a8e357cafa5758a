// Package logging provides structured logging configuration for the proxy.
//
// It wraps log/slog so that every component logs with a consistent level,
// format and attribute vocabulary. Components accept a *slog.Logger in their
// constructor or via an option; when none is provided they fall back to
// logging.Nop() and stay silent.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("engine started", "protocol", "legacy-v3")
package logging
