// Package logger configures logrus for the dutch-trader service and
// provides the audit trail used for every placement and hedge.
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service-wide logger. Production runs emit JSON
// for log aggregation; everywhere else a colored text format is easier
// to follow next to the stream feed. Timestamps carry millisecond
// precision because the cashout refresh loop ticks every ~30ms.
func NewLogger(logLevel string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			ForceColors:     true,
			TimestampFormat: "15:04:05.000",
		})
	}

	return log
}
