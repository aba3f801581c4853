package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --provider
// on both "llmstream stream" and "llmstream replay").
type Flag struct {
	// Name is the long flag name (e.g. "provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagProvider     = "provider"
	FlagURL          = "url"
	FlagIdleTimeout  = "idle-timeout"
	FlagPollInterval = "poll-interval"
	FlagBufferSize   = "buffer-size"
	FlagEvents       = "events"
	FlagBrokers      = "brokers"
	FlagTopic        = "topic"
	FlagMockListen   = "listen"
	FlagScenarios    = "scenarios"
	FlagWatch        = "watch"
	FlagDebug        = "debug"
)

// Registry holds every flag definition shared across commands.
var Registry = FlagSet{
	FlagProvider: {
		Name:        "provider",
		Shorthand:   "p",
		ViperKey:    "client.provider",
		Description: "Provider whose wire format the response uses (empty to detect from the URL)",
	},
	FlagURL: {
		Name:        "url",
		Shorthand:   "u",
		ViperKey:    "client.url",
		Description: "Streaming endpoint URL",
	},
	FlagIdleTimeout: {
		Name:        "idle-timeout",
		ViperKey:    "stream.idle_timeout",
		Description: "Fail the stream after this long without upstream bytes (0 disables)",
	},
	FlagPollInterval: {
		Name:        "poll-interval",
		ViperKey:    "stream.poll_interval",
		Description: "How often a waiting consumer rechecks the stream",
	},
	FlagBufferSize: {
		Name:        "buffer-size",
		ViperKey:    "stream.buffer_size",
		Description: "Decoded chunks buffered between reader and consumer",
	},
	FlagEvents: {
		Name:        "events",
		ViperKey:    "events.enabled",
		Description: "Publish session events to Kafka",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Kafka broker addresses",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for session events",
	},
	FlagMockListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "mock.listen",
		Description: "Address for the mock backend to listen on",
	},
	FlagScenarios: {
		Name:        "scenarios",
		ViperKey:    "mock.scenarios",
		Description: "TOML file with extra mock scenarios",
	},
	FlagWatch: {
		Name:        "watch",
		ViperKey:    "mock.watch",
		Description: "Reload the scenarios file when it changes",
	},
	FlagDebug: {
		Name:        "debug",
		Shorthand:   "d",
		ViperKey:    "log.debug",
		Description: "Enable debug logging",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a comma separated list flag on cmd from the
// given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
