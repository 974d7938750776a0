package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" field.
const ServiceName = "tradfri-bridge"

// Logger is a slog.Logger carrying the service and version fields.
// It satisfies the small Logger interfaces declared by the bridge,
// gateway process runner, identity provisioner and MQTT client.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of the config. Unknown
// formats fall back to JSON and unknown levels to info.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newWithWriter(writerFor(cfg.Output), cfg, version)
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

func newWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a Logger with extra fields on every entry:
//
//	gwLog := log.With("gateway", cfg.Gateway.Host)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Redact returns a loggable stand-in for a secret: the first four
// characters followed by an ellipsis, or "***" for short values.
func Redact(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..."
}

// Default is the logger used before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
