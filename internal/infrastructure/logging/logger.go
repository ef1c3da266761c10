package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" field.
const ServiceName = "discord-mqtt-bot"

// redacted replaces the value of any attribute listed in secretKeys.
const redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"token":         true,
	"password":      true,
	"authorization": true,
	"discord_token": true,
	"mqtt_password": true,
}

// Logger wraps slog.Logger with the bot's default fields and redaction.
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a logger from the logging section of the configuration.
//
// Parameters:
//   - cfg: Logging configuration (level, format, output)
//   - version: Application version for the default "version" field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return NewWithWriter(output, cfg, version)
}

// NewWithWriter is New with an explicit destination. cfg.Output is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// redact masks secret attributes at any group depth.
func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// parseLevel converts a string log level to slog.Level.
// Unrecognised values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	relayLogger := logger.With("component", "relay")
//	relayLogger.Info("subscribed") // Includes component=relay
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Printer returns a printf-style adapter that logs every line at level.
// It satisfies the Println/Printf logger interface used by paho.
func (l *Logger) Printer(level slog.Level) *Printer {
	return &Printer{logger: l.Logger, level: level}
}

// Printer forwards printf-style library logging to a slog logger.
type Printer struct {
	logger *slog.Logger
	level  slog.Level
}

// Println logs the operands joined with spaces.
func (p *Printer) Println(v ...any) {
	p.log(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs a formatted message.
func (p *Printer) Printf(format string, v ...any) {
	p.log(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (p *Printer) log(msg string) {
	ctx := context.Background()
	if !p.logger.Enabled(ctx, p.level) {
		return
	}
	p.logger.Log(ctx, p.level, strings.TrimSpace(msg))
}

// Discard returns a logger that drops every entry. Useful in tests.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}
