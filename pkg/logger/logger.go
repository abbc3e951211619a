// Package logger provides a thin structured-logging wrapper used by all
// application services. It is backed by logrus and keeps a named component
// field on every entry.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls the behaviour of a Logger built with New.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

// Logger is a structured logger bound to a component name.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from the provided configuration. Unknown values fall
// back to info level, text format and stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	base.SetOutput(resolveOutput(cfg))

	return &Logger{Entry: logrus.NewEntry(base)}
}

// NewDefault returns an info-level text logger tagged with the given
// component name. Services use this when no logger is injected.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{})
	return l.WithField("component", component)
}

// WithField returns a logger with an additional structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields returns a logger with several additional structured fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a logger that records the given error.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "storefront"
		}
		name := fmt.Sprintf("%s_%s.log", prefix, time.Now().UTC().Format("2006-01-02"))
		if err := os.MkdirAll("logs", 0o755); err == nil {
			if f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				return io.MultiWriter(os.Stdout, f)
			}
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}
