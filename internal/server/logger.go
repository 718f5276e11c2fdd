package server

import (
	"os"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/config"
)

// NewLogger builds the process logger. Production logs are JSON; other
// environments get the text formatter with full timestamps.
func NewLogger(cfg config.ServerConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
