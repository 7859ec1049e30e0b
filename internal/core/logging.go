package core

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LevelForVerbosity maps the verbose setting to a slog level
func LevelForVerbosity(verbose int) slog.Level {
	switch {
	case verbose < 0:
		return slog.LevelWarn
	case verbose == 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// SetupLogging installs a tint handler on w as the default slog logger.
// Colours are only used when w is a terminal.
func SetupLogging(w io.Writer, verbose int) {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      LevelForVerbosity(verbose),
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	})

	slog.SetDefault(slog.New(handler))
}
