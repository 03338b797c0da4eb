package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides leveled logging throughout the application. Messages are
// printf-style and carry a "[component]" prefix by convention.
type Logger struct {
	entry *logrus.Logger
}

// NewLogger creates a Logger writing to stdout at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a Logger writing to w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &Logger{entry: l}
}

// Discard returns a Logger that drops everything. Used in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, "error")
}

func (l *Logger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}
