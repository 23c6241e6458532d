package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pupworks/railyard-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger for structured service logging.
//
// Every subsystem derives its own component logger via With, so a single
// advertisement can be traced from the scan callback through the registry
// to the fan-out sinks by filtering on the component attribute.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the loaded configuration.
//
// JSON is the default format; it is what journald on the layout
// controller ingests. Text reads better when tailing a running session
// over SSH. Unrecognised levels and formats fall back to info and JSON
// rather than failing startup.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Service version stamped onto every record
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	output := outputWriter(cfg.Output)
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "railyard"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// outputWriter maps the configured output name onto a writer.
// Anything other than "stderr" means stdout.
func outputWriter(name string) io.Writer {
	if strings.ToLower(name) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
// Parameters:
//   - args: Key-value pairs to add as default attributes
//
// Returns:
//   - *Logger: New logger with added attributes
//
// Example:
//
//	radioLog := logger.With("component", "ble")
//	radioLog.Info("broadcast complete") // Includes component=ble
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before the configuration is parsed,
// mostly so config load failures themselves land somewhere structured.
// JSON to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
