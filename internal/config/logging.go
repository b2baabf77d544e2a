package config

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// SetupLogging applies log.level and log.format to the standard logrus
// logger. Logs go to stderr so command output on stdout stays clean.
func SetupLogging(c *Config) error {
	return configureLogger(log.StandardLogger(), c, os.Stderr)
}

func configureLogger(logger *log.Logger, c *Config, out io.Writer) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetOutput(out)

	if c.Log.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
