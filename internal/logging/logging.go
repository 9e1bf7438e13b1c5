// Package logging builds the zerolog loggers used by the CLI, the server and
// the converter, with optional file output rotated by lumberjack.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures a logger.
type Options struct {
	Level      string
	Format     string // "console" (default) or "json"
	File       string // optional rotated log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds a logger writing to w and, when opts.File is set, to a rotated
// file. The returned close function releases the file and is never nil.
func New(w io.Writer, opts Options) (zerolog.Logger, func() error) {
	if w == nil {
		w = os.Stderr
	}

	var out io.Writer = w
	if opts.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !IsTerminal(w)}
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		// Files always get JSON lines regardless of the terminal format.
		out = zerolog.MultiLevelWriter(out, rotator)
		closeFn = rotator.Close
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
	return logger, closeFn
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// NewID returns a sortable unique id for correlating log lines.
func NewID() string {
	return xid.New().String()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
