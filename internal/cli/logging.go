package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// newLogger returns a tint handler for text output, coloured only when w is a
// terminal, or a JSON handler for machine-readable output.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	tty := isTerminal(w)
	color.NoColor = !tty

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !tty,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
