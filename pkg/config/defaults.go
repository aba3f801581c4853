package config

const (
	defaultIdleTimeout  = "60s"
	defaultPollInterval = "30s"
	defaultBufferSize   = 64

	// defaultURL is a local Ollama; the provider is detected from it.
	defaultURL = "http://localhost:11434/api/chat"

	defaultEventsTopic = "llmstream.sessions"

	defaultMockListen = ":8090"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Stream: StreamConfig{
			IdleTimeout:  defaultIdleTimeout,
			PollInterval: defaultPollInterval,
			BufferSize:   defaultBufferSize,
		},
		Client: ClientConfig{
			URL: defaultURL,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		Mock: MockConfig{
			Listen: defaultMockListen,
		},
	}
}
