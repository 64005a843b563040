// Package logrus adapts sirupsen/logrus to the domain Logger interface.
package logrus

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ochairo/codesign/internal/domain/interfaces"
)

// Log formats accepted by New
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a Logger
type Options struct {
	Level  string    // logrus level name, defaults to "info"
	Format string    // "text" or "json", defaults to "text"
	Out    io.Writer // defaults to os.Stderr
}

// Logger writes structured entries through a dedicated logrus instance
type Logger struct {
	entry *logrus.Entry
}

// New creates a Logger. Unknown levels or formats are rejected.
func New(opts Options) (*Logger, error) {
	l := logrus.New()

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	l.SetLevel(level)

	switch opts.Format {
	case "", FormatText:
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000000000Z07:00",
			FullTimestamp:   true,
		})
	case FormatJSON:
		l.SetFormatter(new(logrus.JSONFormatter))
	default:
		return nil, fmt.Errorf("unknown log-format %q", opts.Format)
	}

	return &Logger{entry: logrus.NewEntry(l)}, nil
}

// With returns a child logger carrying fields on every entry
func (l *Logger) With(fields ...interfaces.Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(fields))}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

func toFields(fields []interfaces.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
