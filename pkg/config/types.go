package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent llmstream configuration stored as
// config.toml in the .llmstream/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Stream  StreamConfig `toml:"stream"`
	Client  ClientConfig `toml:"client"`
	Events  EventsConfig `toml:"events"`
	Mock    MockConfig   `toml:"mock"`
	Log     LogConfig    `toml:"log"`
}

// StreamConfig holds stream session settings. Durations use Go duration
// syntax ("60s", "1m30s"). An idle_timeout of "0s" disables the idle timer.
type StreamConfig struct {
	IdleTimeout  string `toml:"idle_timeout,omitempty"`
	PollInterval string `toml:"poll_interval,omitempty"`
	BufferSize   int    `toml:"buffer_size,omitempty"`
}

// ClientConfig holds the default upstream used by "llmstream stream" when
// no --provider or --url is given. An empty provider is detected from the URL.
type ClientConfig struct {
	Provider string `toml:"provider,omitempty"`
	URL      string `toml:"url,omitempty"`
}

// EventsConfig holds the Kafka session event settings.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// MockConfig holds the mock backend settings.
type MockConfig struct {
	Listen    string `toml:"listen,omitempty"`
	Scenarios string `toml:"scenarios,omitempty"`
	Watch     bool   `toml:"watch,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`
	Debug  bool `toml:"debug,omitempty"`
}

// IdleTimeoutDuration parses the configured idle timeout.
func (s StreamConfig) IdleTimeoutDuration() (time.Duration, error) {
	return parseDuration("stream.idle_timeout", s.IdleTimeout)
}

// PollIntervalDuration parses the configured poll interval.
func (s StreamConfig) PollIntervalDuration() (time.Duration, error) {
	return parseDuration("stream.poll_interval", s.PollInterval)
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: negative duration", key)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func durationKey(key string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := parseDuration(key, v); err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
	}
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"stream.idle_timeout":  durationKey("stream.idle_timeout", func(c *Config) *string { return &c.Stream.IdleTimeout }),
	"stream.poll_interval": durationKey("stream.poll_interval", func(c *Config) *string { return &c.Stream.PollInterval }),
	"stream.buffer_size": {
		get: func(c *Config) string {
			if c.Stream.BufferSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Stream.BufferSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid value for stream.buffer_size: %w", err)
			}
			c.Stream.BufferSize = int(n)
			return nil
		},
	},
	"client.provider": stringKey(func(c *Config) *string { return &c.Client.Provider }),
	"client.url":      stringKey(func(c *Config) *string { return &c.Client.URL }),
	"events.enabled":  boolKey("events.enabled", func(c *Config) *bool { return &c.Events.Enabled }),
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitList(v)
			return nil
		},
	},
	"events.topic":   stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"mock.listen":    stringKey(func(c *Config) *string { return &c.Mock.Listen }),
	"mock.scenarios": stringKey(func(c *Config) *string { return &c.Mock.Scenarios }),
	"mock.watch":     boolKey("mock.watch", func(c *Config) *bool { return &c.Mock.Watch }),
	"log.json":       boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty":     boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.debug":      boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
}

// splitList splits a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
