package config

import (
	"github.com/spf13/viper"

	"github.com/papercomputeco/llmstream/pkg/logger"
)

// LoggerOptions maps the resolved log section onto logger options.
func LoggerOptions(v *viper.Viper) []logger.Option {
	return []logger.Option{
		logger.WithDebug(v.GetBool("log.debug")),
		logger.WithJSON(v.GetBool("log.json")),
		logger.WithPretty(v.GetBool("log.pretty")),
	}
}
