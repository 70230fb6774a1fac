// Package obslog is tvargenta's shared structured-logging setup.
//
// Usage:
//
//	log := obslog.New("weekly")
//	log.WithField("channel", canalID).Info("weekly schedule regenerated")
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger pre-configured for a named component. Output
// is JSON to stdout. Log level is controlled by TVARGENTA_LOG_LEVEL
// (default: info). The component field is embedded in every log line.
func New(component string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	levelStr := os.Getenv("TVARGENTA_LOG_LEVEL")
	level, err := logrus.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("component", component)
}
