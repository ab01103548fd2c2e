// Package monitoring builds the process logger and the run metrics.
package monitoring

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger returns a slog logger writing text, or JSON when asJSON is set,
// at the given level.
func NewLogger(w io.Writer, level slog.Level, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return l, nil
}

// Discard returns log, or a logger that drops everything when log is nil.
func Discard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}

// PrintfLogger adapts a slog logger to libraries that log printf-style,
// such as golang-migrate.
type PrintfLogger struct {
	log     *slog.Logger
	verbose bool
}

// NewPrintfLogger wraps log. A nil log discards output.
func NewPrintfLogger(log *slog.Logger, verbose bool) *PrintfLogger {
	return &PrintfLogger{log: Discard(log), verbose: verbose}
}

// Printf logs the formatted message at info level.
func (p *PrintfLogger) Printf(format string, v ...any) {
	p.log.Info(strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}

// Verbose reports whether the caller should emit detailed output.
func (p *PrintfLogger) Verbose() bool {
	return p.verbose
}
