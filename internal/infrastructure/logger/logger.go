package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"fiscalbridge/internal/domain/ports"
)

const timestampFormat = "2006-01-02 15:04:05"

// Options selects level, format and outputs.
type Options struct {
	Level  string
	Format string
	// File enables a rotated log file in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger implements ports.Logger on top of logrus.
type Logger struct {
	entry *logrus.Entry
}

// New builds a logger. The returned closer releases the log file, if any.
func New(opts Options) (*Logger, io.Closer, error) {
	l := logrus.New()
	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %s, %w", level, err)
	}
	l.SetLevel(lvl)

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{TimestampFormat: timestampFormat, FullTimestamp: true})
	}

	var closer io.Closer = io.NopCloser(nil)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		l.SetOutput(io.MultiWriter(os.Stderr, file))
		closer = file
	} else {
		l.SetOutput(os.Stderr)
	}
	return &Logger{entry: logrus.NewEntry(l)}, closer, nil
}

// NewWriter logs to w at debug level. Tests use it to capture output.
func NewWriter(w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return &Logger{entry: logrus.NewEntry(l)}
}

// NewNop returns a logger that discards everything.
func NewNop() ports.Logger {
	return ports.NopLogger{}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

// Fatal logs and exits.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}

// Printf logs at info level.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// WithField returns a child logger carrying key=value.
func (l *Logger) WithField(key string, value interface{}) ports.Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}
