// Package logging provides structured logging for the bot.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Secret attributes (token, password) redacted before output
//   - Printer adapter so library loggers (paho, discordgo) share the output
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error (LOG_LEVEL overrides)
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("notification delivered", "target", "john")
//	logger.Error("delivery failed", "error", err)
//
// # Security
//
// Never log the Discord token, MQTT password, or message bodies. Log the
// target name and message length instead.
package logging
