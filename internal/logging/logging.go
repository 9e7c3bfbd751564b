// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Builder assembles a zerolog logger. The zero value logs JSON at info level
// to stdout.
type Builder struct {
	writer io.Writer
	path   string
	level  string
	format string
}

// Log is a built logger and the file it owns, if any.
type Log struct {
	Logger zerolog.Logger
	file   *os.File
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// ToWriter sends output to w.
func (b *Builder) ToWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// ToPath appends output to the file at path.
func (b *Builder) ToPath(path string) *Builder {
	b.path = path
	return b
}

// Level sets the minimum level by name (debug, info, warn, error).
func (b *Builder) Level(level string) *Builder {
	b.level = level
	return b
}

// Format selects json or console output.
func (b *Builder) Format(format string) *Builder {
	b.format = format
	return b
}

// Make builds the logger.
func (b *Builder) Make() (*Log, error) {
	log := &Log{}
	var w io.Writer = os.Stdout
	if b.writer != nil {
		w = b.writer
	}
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		log.file = f
		w = zerolog.SyncWriter(f)
	}

	switch strings.ToLower(b.format) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, NoColor: b.path != ""}
	default:
		log.Close()
		return nil, fmt.Errorf("unknown log format %q", b.format)
	}

	level := zerolog.InfoLevel
	if b.level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(b.level))
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = l
	}
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, nil
}

// Close closes the log file, if any.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
