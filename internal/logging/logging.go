// Package logging builds the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New builds a logger writing to out: JSON when format is "json", tinted
// text otherwise. Colour is disabled when out is not a terminal.
func New(level, format string, out *os.File) *slog.Logger {
	lvl := ParseLevel(level)

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	} else {
		h = tint.NewHandler(colorable.NewColorable(out), &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(out.Fd()),
		})
	}

	return slog.New(h)
}

// ParseLevel converts string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
