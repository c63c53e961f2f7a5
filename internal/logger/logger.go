// Package logger configures the process-wide structured logger. Every
// pipeline stage logs through it so all output shares one JSON shape.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// WithStage creates an entry tagged with the pipeline stage emitting it.
func WithStage(stage string) *logrus.Entry {
	return Logger.WithField("stage", stage)
}

// WithFields creates an entry with the given fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField creates an entry with a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError creates an entry with an error field.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// Info logs an info message.
func Info(msg string) {
	Logger.Info(msg)
}

// Error logs an error message.
func Error(msg string) {
	Logger.Error(msg)
}

// Debug logs a debug message.
func Debug(msg string) {
	Logger.Debug(msg)
}

// Warn logs a warning message.
func Warn(msg string) {
	Logger.Warn(msg)
}
