// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger: level from configuration, JSON output
// in production-like environments, human-readable text everywhere else.
func Init(level, environment string) {
	Log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", level, err)
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)

	switch strings.ToLower(environment) {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
}

// Get returns the configured global logger. Services take it as a
// dependency instead of touching the global directly.
func Get() *logrus.Logger {
	return Log
}
