// Package logging builds the engine logger. Promotion, deoptimization and
// compile-failure events log at debug/info; invariant violations log at
// error so they are distinguishable from ordinary error values in logs and
// tests.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// New creates a logger writing to w at the given level. Color output is
// only enabled when w is a terminal.
func New(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Prefix:          "sfex",
	})
	logger.SetLevel(parseLevel(level))
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger
}

// Discard returns a logger that drops everything; tests use it.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
