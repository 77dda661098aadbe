// Package logger provides structured logging for the provisioner
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level logrus.Level) *Logger {
	logger := logrus.New()
	logger.SetLevel(level)

	// Use JSON formatter for structured logging in production
	if os.Getenv("ENV") == "production" {
		setJSON(logger)
	} else {
		setText(logger)
	}

	return &Logger{Logger: logger}
}

// NewLoggerWithFormat creates a logger honouring an explicit format ("json" or
// "text"). An empty format falls back to the ENV based choice of NewLogger.
func NewLoggerWithFormat(level logrus.Level, format string) *Logger {
	l := NewLogger(level)
	switch strings.ToLower(format) {
	case "json":
		setJSON(l.Logger)
	case "text":
		setText(l.Logger)
	}
	return l
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	l := NewLogger(logrus.PanicLevel)
	l.SetOutput(io.Discard)
	return l
}

func setJSON(l *logrus.Logger) {
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})
}

func setText(l *logrus.Logger) {
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// ParseLevel turns a config string into a logrus level, defaulting to info.
func ParseLevel(level string, verbose bool) logrus.Level {
	if verbose {
		return logrus.DebugLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithContext adds context-specific fields to the logger
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithContext(ctx)

	if runID := ctx.Value(RunIDKey); runID != nil {
		entry = entry.WithField("run_id", runID)
	}

	return entry
}

type contextKey string

// RunIDKey is the context key carrying the current provisioning run ID.
const RunIDKey contextKey = "run_id"

// WithStep adds step-specific fields to the logger
func (l *Logger) WithStep(stepName string, index int) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"step":  stepName,
		"index": index,
	})
}

// WithError adds error context to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// Default logger instance
var defaultLogger = NewLogger(logrus.InfoLevel)

// Default returns the package level logger.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the log level for the default logger
func SetLevel(level logrus.Level) {
	defaultLogger.SetLevel(level)
}
