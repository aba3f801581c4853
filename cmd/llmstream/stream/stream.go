// Package streamcmder provides the stream command, which opens a streaming
// session against a provider endpoint and prints the normalized output.
package streamcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/llmstream/pkg/cliui"
	"github.com/papercomputeco/llmstream/pkg/config"
	"github.com/papercomputeco/llmstream/pkg/credentials"
	"github.com/papercomputeco/llmstream/pkg/dotdir"
	"github.com/papercomputeco/llmstream/pkg/eventstream/kafka"
	"github.com/papercomputeco/llmstream/pkg/eventstream/worker"
	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/logger"
	"github.com/papercomputeco/llmstream/pkg/stream"
)

type streamCommander struct {
	provider     string
	url          string
	method       string
	headers      []string
	body         string
	record       string
	render       bool
	idleTimeout  string
	pollInterval string
	bufferSize   int
	events       bool
	brokers      []string
	topic        string
	configDir    string

	viper  *viper.Viper
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

const streamLongDesc string = `Open a streaming session and print the model output as it arrives.

The request body is sent as-is: build it for the target provider yourself.
The response is decoded with the given provider's wire format, or with the
format detected from the URL when --provider is empty. Unless the request
already carries one, the provider's auth header is added from "llmstream
auth" credentials or the provider's API key environment variable.

Body sources:
  --body '{"model":...}'   literal JSON
  --body @request.json     read from a file
  --body -                 read from stdin

Examples:
  llmstream stream -p openai -u https://api.openai.com/v1/chat/completions --body @chat.json
  llmstream stream -u https://api.anthropic.com/v1/messages \
    -H "x-api-key: $KEY" -H "anthropic-version: 2023-06-01" --body @messages.json
  llmstream stream -u http://localhost:11434/api/chat --body @ollama.json --render
  llmstream stream -p mock -u http://localhost:8090/mock/slow --body '{}' --record slow`

const streamShortDesc string = "Stream a model response"

func NewStreamCmd() *cobra.Command {
	cmder := &streamCommander{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	cmd := &cobra.Command{
		Use:   "stream",
		Short: streamShortDesc,
		Long:  streamLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Registry, []string{
				config.FlagProvider,
				config.FlagURL,
				config.FlagIdleTimeout,
				config.FlagPollInterval,
				config.FlagBufferSize,
				config.FlagEvents,
				config.FlagBrokers,
				config.FlagTopic,
				config.FlagDebug,
			})
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.stdout = cmd.OutOrStdout()
			cmder.stderr = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Registry, config.FlagURL, &cmder.url)
	config.AddStringFlag(cmd, config.Registry, config.FlagIdleTimeout, &cmder.idleTimeout)
	config.AddStringFlag(cmd, config.Registry, config.FlagPollInterval, &cmder.pollInterval)
	config.AddIntFlag(cmd, config.Registry, config.FlagBufferSize, &cmder.bufferSize)
	config.AddBoolFlag(cmd, config.Registry, config.FlagEvents, &cmder.events)
	config.AddStringSliceFlag(cmd, config.Registry, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Registry, config.FlagTopic, &cmder.topic)

	cmd.Flags().StringVarP(&cmder.method, "method", "X", http.MethodPost, "HTTP method")
	cmd.Flags().StringArrayVarP(&cmder.headers, "header", "H", nil, "Request header as key=value (repeatable)")
	cmd.Flags().StringVarP(&cmder.body, "body", "b", "", "Request body: JSON, @file or - for stdin")
	cmd.Flags().StringVar(&cmder.record, "record", "", "Record the raw wire bytes (bare names go to .llmstream/recordings/)")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the final text as markdown when stdout is a terminal")

	return cmd
}

func (c *streamCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	c.logger = logger.New(append(config.LoggerOptions(c.viper),
		logger.WithWriter(c.stderr),
		logger.WithPrefix("stream"),
	)...)

	req, err := c.request()
	if err != nil {
		return err
	}

	opts, cleanup, err := c.options()
	if err != nil {
		return err
	}
	defer cleanup()

	var st *stream.Stream
	open := func() error {
		var openErr error
		st, openErr = stream.Open(ctx, req, opts...)
		return openErr
	}

	start := time.Now()
	if cliui.IsTerminal(c.stderr) {
		err = cliui.Step(c.stderr, "connecting to "+req.URL, open)
	} else {
		err = open()
	}
	if err != nil {
		return err
	}
	defer st.Close()

	c.logger.Debug("stream opened", "session", st.ID(), "provider", st.Provider())

	render := c.render && cliui.IsTerminal(c.stdout)

	var acc llm.Accumulator
	for chunk, err := range st.Chunks(ctx) {
		if err != nil {
			c.finish(&acc, start, render)
			return err
		}
		acc.Add(chunk)
		if !render {
			fmt.Fprint(c.stdout, chunk.Content)
		}
	}

	c.finish(&acc, start, render)
	return nil
}

// finish prints the rendered text, if deferred, and the summary.
func (c *streamCommander) finish(acc *llm.Accumulator, start time.Time, render bool) {
	resp := acc.Response()

	if render {
		out, err := cliui.RenderMarkdown(resp.Content)
		if err != nil {
			c.logger.Debug("markdown render failed", "error", err)
		}
		fmt.Fprint(c.stdout, out)
	} else if resp.Content != "" {
		fmt.Fprintln(c.stdout)
	}

	fmt.Fprintln(c.stderr, cliui.Summary(resp, time.Since(start)))
}

func (c *streamCommander) request() (llm.Request, error) {
	url := c.viper.GetString("client.url")
	if url == "" {
		return llm.Request{}, errors.New("an endpoint URL is required (--url or client.url)")
	}

	body, err := c.readBody()
	if err != nil {
		return llm.Request{}, err
	}

	header, err := parseHeaders(c.headers)
	if err != nil {
		return llm.Request{}, err
	}

	providerName := c.viper.GetString("client.provider")
	if err := c.applyAuth(header, providerName, url); err != nil {
		return llm.Request{}, err
	}

	return llm.Request{
		Provider: providerName,
		URL:      url,
		Method:   c.method,
		Header:   header,
		Body:     body,
	}, nil
}

func (c *streamCommander) readBody() ([]byte, error) {
	switch {
	case c.body == "":
		return nil, errors.New("a request body is required (--body)")
	case c.body == "-":
		return io.ReadAll(c.stdin)
	case strings.HasPrefix(c.body, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(c.body, "@"))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		return data, nil
	default:
		return []byte(c.body), nil
	}
}

// applyAuth adds the provider's auth header from the stored credentials or
// the provider's environment variable, unless the request already has one.
func (c *streamCommander) applyAuth(header http.Header, providerName, url string) error {
	if providerName == "" {
		providerName = provider.Detect(url)
	}
	if !credentials.IsSupportedProvider(providerName) {
		return nil
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	key, err := mgr.ResolveKey(providerName)
	if err != nil {
		return err
	}
	if credentials.ApplyAuth(header, providerName, key) {
		c.logger.Debug("added stored credentials", "provider", providerName)
	}
	return nil
}

// parseHeaders accepts "key=value" and "key: value", splitting at whichever
// separator comes first.
func parseHeaders(raw []string) (http.Header, error) {
	header := make(http.Header, len(raw))
	for _, h := range raw {
		i := strings.IndexAny(h, "=:")
		if i < 0 || strings.TrimSpace(h[:i]) == "" {
			return nil, fmt.Errorf("invalid header %q (want key=value)", h)
		}
		header.Add(strings.TrimSpace(h[:i]), strings.TrimSpace(h[i+1:]))
	}
	return header, nil
}

// options builds the session options from the resolved configuration. The
// returned cleanup flushes pending events and closes the recording.
func (c *streamCommander) options() ([]stream.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []stream.Option{
		stream.WithLogger(c.logger),
		stream.WithIdleTimeout(c.viper.GetDuration("stream.idle_timeout")),
		stream.WithPollInterval(c.viper.GetDuration("stream.poll_interval")),
		stream.WithBufferSize(c.viper.GetInt("stream.buffer_size")),
	}

	if c.record != "" {
		path, err := dotdir.NewManager().RecordingPath(c.record, c.configDir)
		if err != nil {
			return nil, cleanup, err
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating recording: %w", err)
		}
		closers = append(closers, func() { _ = f.Close() })
		opts = append(opts, stream.WithTee(f))
		c.logger.Info("recording wire bytes", "path", path)
	}

	if c.viper.GetBool("events.enabled") {
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.viper.GetStringSlice("events.brokers"),
			Topic:   c.viper.GetString("events.topic"),
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("creating event publisher: %w", err)
		}

		pool, err := worker.NewPool(&worker.Config{
			Publisher: pub,
			Logger:    c.logger,
		})
		if err != nil {
			_ = pub.Close()
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = pool.Close() })
		opts = append(opts, stream.WithPublisher(pool))
	}

	return opts, cleanup, nil
}
