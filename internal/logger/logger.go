// Package logger builds the slog loggers handed to every component.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options selects the handler and level.
type Options struct {
	Verbose bool
	JSON    bool
	Output  io.Writer // defaults to stderr
}

// New returns a text (or JSON) logger at Info, or Debug when Verbose.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// Scope tags log lines with the emitting component.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Preview shortens s for log output.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
