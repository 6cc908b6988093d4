package config

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies LOG_FORMAT and LOG_LEVEL to the global logger.
func ConfigureLogging(c Config) {
	log.SetOutput(os.Stdout)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
