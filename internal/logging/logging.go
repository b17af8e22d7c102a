// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Format selects the log encoding.
type Format string

const (
	// FormatText is human-readable, coloured when the writer is a terminal.
	FormatText Format = "text"
	// FormatJSON is one JSON object per line.
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format Format
	Writer io.Writer // default os.Stderr
	Prefix string
}

// New returns a slog.Logger for opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	if opts.Format == FormatJSON {
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
		logger := slog.New(h)
		if opts.Prefix != "" {
			logger = logger.With("service", opts.Prefix)
		}
		return logger
	}

	h := log.NewWithOptions(w, log.Options{
		Level:           log.Level(opts.Level),
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(h)
}
