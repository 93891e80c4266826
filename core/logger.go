package core

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// LogrusLogger adapts a *logrus.Logger to Logger.
// Every entry carries the caller position, trimmed to the last three path
// elements.
type LogrusLogger struct {
	l *logrus.Logger
}

// NewDefaultLogger creates a logrus-backed logger writing text to stderr at
// info level.
func NewDefaultLogger() *LogrusLogger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &LogrusLogger{l: l}
}

// NewLogrusLogger wraps an existing logrus logger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.New()
	}
	return &LogrusLogger{l: l}
}

// SetLevel parses level ("debug", "info", "warn", "error"); unknown values
// select info.
func (l *LogrusLogger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.l.SetLevel(lvl)
}

// SetOutput redirects log output.
func (l *LogrusLogger) SetOutput(out io.Writer) {
	l.l.SetOutput(out)
}

// Logrus exposes the wrapped logger.
func (l *LogrusLogger) Logrus() *logrus.Logger {
	return l.l
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(msg string, fields ...Field) {
	l.entry(fields).Debug(msg)
}

// Info logs an info message
func (l *LogrusLogger) Info(msg string, fields ...Field) {
	l.entry(fields).Info(msg)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(msg string, fields ...Field) {
	l.entry(fields).Warn(msg)
}

// Error logs an error message
func (l *LogrusLogger) Error(msg string, fields ...Field) {
	l.entry(fields).Error(msg)
}

func (l *LogrusLogger) entry(fields []Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+1)
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		path := strings.Split(file, string(os.PathSeparator))
		if len(path) > 3 {
			path = path[len(path)-3:]
		}
		data["position"] = fmt.Sprintf("%s:%d", strings.Join(path, string(os.PathSeparator)), line)
	}
	return l.l.WithFields(data)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
