package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the process-wide slog default logger from the logging
// section of the portal configuration.
//
// format: "json" → JSONHandler (machine readable, production default);
// anything else → TextHandler (local development).
//
// level: "debug", "info", "warn", "error" (case-insensitive); unknown values
// fall back to "info". Source locations are attached only at debug level.
//
// All slog.Info/Warn/Error calls elsewhere in the portal use the installed
// default, so nothing carries a *slog.Logger around explicitly.
func SetupLogger(format, level string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: strings.EqualFold(level, "debug"),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", opts.Level)
}

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
