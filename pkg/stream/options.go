package stream

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/llmstream/pkg/eventstream"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
)

const (
	// DefaultIdleTimeout is how long the upstream may stay silent before the
	// session fails with llm.ErrStreamTimeout.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultPollInterval bounds each wait of Next before it polls again.
	DefaultPollInterval = 30 * time.Second

	// DefaultBufferSize is the capacity of the session channel.
	DefaultBufferSize = 64
)

// Option configures a stream session.
type Option func(*config)

type config struct {
	client       *http.Client
	logger       *slog.Logger
	decoder      provider.Provider
	bufferSize   int
	readSize     int
	maxLineSize  int
	tee          io.Writer
	publisher    eventstream.Publisher
	idleTimeout  time.Duration
	pollInterval time.Duration
}

func newConfig(opts []Option) *config {
	c := &config{
		client:       http.DefaultClient,
		logger:       slog.New(slog.DiscardHandler),
		bufferSize:   DefaultBufferSize,
		idleTimeout:  DefaultIdleTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets the client used to send the request. The client should
// not set an overall Timeout, which would cut off long streams; use
// WithIdleTimeout instead.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDecoder overrides the decoder selected from the request's provider
// identity.
func WithDecoder(p provider.Provider) Option {
	return func(c *config) {
		c.decoder = p
	}
}

// WithBufferSize sets how many decoded chunks may wait for the consumer
// before the producer stops reading.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.bufferSize = n
		}
	}
}

// WithReadSize sets the size of each body read.
func WithReadSize(n int) Option {
	return func(c *config) {
		c.readSize = n
	}
}

// WithMaxLineSize bounds a single wire line; longer lines fail the session
// with wire.ErrLineTooLong. Defaults to 1 MiB.
func WithMaxLineSize(n int) Option {
	return func(c *config) {
		c.maxLineSize = n
	}
}

// WithTee records every raw body byte to w.
func WithTee(w io.Writer) Option {
	return func(c *config) {
		c.tee = w
	}
}

// WithPublisher emits a session event to p when the stream ends.
func WithPublisher(p eventstream.Publisher) Option {
	return func(c *config) {
		c.publisher = p
	}
}

// WithIdleTimeout sets the idle window. Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		c.idleTimeout = d
	}
}

// WithPollInterval sets how long Next waits on the channel before polling
// again.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}
