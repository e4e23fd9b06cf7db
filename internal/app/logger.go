package app

import (
	"strings"

	"github.com/charlesng35/cabinet/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
// A "console" format switches to the human readable encoder.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}

	var opts []logger.Option
	if strings.EqualFold(strings.TrimSpace(cfg.LogFormat), "console") {
		opts = append(opts, logger.WithConsoleEncoding())
	}
	return logger.Init(level, opts...)
}
