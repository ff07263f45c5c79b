package internal

import (
	"io"
	"log/slog"
)

// newLogger builds the process logger from the app section and installs it
// as the slog default.
func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.LogLevel,
			AddSource: true,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
