package mockcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/llmstream/pkg/config"
	"github.com/papercomputeco/llmstream/pkg/logger"
	"github.com/papercomputeco/llmstream/pkg/mockserver"
)

type serveCommander struct {
	listen    string
	scenarios string
	watch     bool
	logFile   string

	viper  *viper.Viper
	logger *slog.Logger
	stderr io.Writer

	// ready receives the bound address once the server listens.
	ready func(addr net.Addr)
}

const serveLongDesc string = `Run the mock LLM backend until interrupted.

Extra scenarios are read from a TOML file of [[scenario]] tables and merged
over the built-in ones. With --watch the file is reloaded when it changes.

Examples:
  llmstream mock serve --listen :9000
  llmstream mock serve --scenarios ./scenarios.toml --watch
  llmstream mock serve --log-file mock.log`

const serveShortDesc string = "Run the mock backend"

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Registry, []string{
				config.FlagMockListen,
				config.FlagScenarios,
				config.FlagWatch,
				config.FlagDebug,
			})
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.stderr = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagMockListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagScenarios, &cmder.scenarios)
	config.AddBoolFlag(cmd, config.Registry, config.FlagWatch, &cmder.watch)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	listener, err := net.Listen("tcp", c.viper.GetString("mock.listen"))
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	server, err := mockserver.New(mockserver.Config{
		ListenAddr:    listener.Addr().String(),
		ScenariosPath: c.viper.GetString("mock.scenarios"),
		Watch:         c.viper.GetBool("mock.watch"),
	}, c.logger)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("creating mock server: %w", err)
	}
	if c.ready != nil {
		c.ready(listener.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.RunWithListener(listener)
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down mock server")
		if err := server.Close(); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		_ = server.Close()
		return err
	}
}

// setupLogger writes to stderr, and additionally to --log-file as JSON.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.New(append(config.LoggerOptions(c.viper),
		logger.WithWriter(c.stderr),
		logger.WithPrefix("mock"),
	)...)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.viper.GetBool("log.debug")),
		logger.WithJSON(true),
		logger.WithWriter(f),
		logger.WithPrefix("mock"),
	)
	c.logger = logger.Multi(console, file)
	return func() { _ = f.Close() }, nil
}
