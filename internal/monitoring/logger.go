// Package monitoring holds the diagnostic logging used by the scanner.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// Logf is the package-level diagnostic logger used by the integration
// engine. It defaults to log.Printf and may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// NewLogger returns a colourised slog logger writing to w. verbosity 0 logs
// warnings and errors, 1 adds info, 2 and above add debug.
func NewLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// SlogLogf adapts a slog logger to the Logf signature. Messages go out at
// debug level so they appear only with -v -v.
func SlogLogf(l *slog.Logger) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		l.Debug(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
	}
}
