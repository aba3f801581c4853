// Package mockserver is a local LLM backend that streams canned token scripts
// in any supported provider wire format, with injectable delays and failures.
package mockserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// ScenarioHeader selects a scenario on the provider-shaped routes.
	ScenarioHeader = "X-Mock-Scenario"

	shutdownTimeout = 5 * time.Second
)

var (
	errAbruptClose  = errors.New("mock: abrupt close")
	errServerClosed = errors.New("mock: server closed")
)

// Config is the mock server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// ScenariosPath is an optional TOML file of extra scenarios.
	ScenariosPath string

	// Watch reloads ScenariosPath when it changes.
	Watch bool
}

// Server streams scenarios over HTTP.
type Server struct {
	config  Config
	catalog *Catalog
	logger  *slog.Logger
	server  *fiber.App

	// ctx is cancelled by Close to release stalls and stop the watcher.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// New creates a Server and loads ScenariosPath when set.
func New(config Config, logger *slog.Logger) (*Server, error) {
	catalog := NewCatalog()
	if config.ScenariosPath != "" {
		if err := catalog.Load(config.ScenariosPath); err != nil {
			return nil, err
		}
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  config,
		catalog: catalog,
		logger:  logger,
		server:  app,
		ctx:     ctx,
		cancel:  cancel,
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/mock/scenarios", s.handleList)
	app.Post("/mock/:scenario", s.handleScenario)

	app.Post("/v1/chat/completions", s.routeFormat(FormatOpenAI))
	app.Post("/v1/messages", s.routeFormat(FormatAnthropic))
	app.Post("/v1beta/models/*", s.routeFormat(FormatGemini))
	app.Post("/api/chat", s.routeFormat(FormatOllama))
	app.Post("/api/generate", s.routeFormat(FormatOllama))
	app.Post("/model/*", s.routeFormat(FormatBedrock))

	return s, nil
}

// Catalog returns the scenarios the server plays.
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.startWatch()
	s.logger.Info("starting mock server",
		"listen", s.config.ListenAddr,
		"scenarios", len(s.catalog.Names()),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.startWatch()
	s.logger.Info("starting mock server",
		"listen", listener.Addr().String(),
		"scenarios", len(s.catalog.Names()),
	)

	return s.server.Listener(listener)
}

func (s *Server) startWatch() {
	if !s.config.Watch || s.config.ScenariosPath == "" {
		return
	}

	go func() {
		if err := s.catalog.Watch(s.ctx, s.config.ScenariosPath, s.logger); err != nil {
			s.logger.Error("scenario watch stopped", "error", err)
		}
	}()
}

// Close releases stalled streams and the watcher, then shuts the server down.
// It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.server.ShutdownWithTimeout(shutdownTimeout)
	})
	return s.closeErr
}

type scenarioInfo struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
}

func (s *Server) handleList(c *fiber.Ctx) error {
	names := s.catalog.Names()
	out := make([]scenarioInfo, 0, len(names))
	for _, name := range names {
		sc, err := s.catalog.Get(name)
		if err != nil {
			continue
		}
		out = append(out, scenarioInfo{Name: sc.Name, Format: sc.Format})
	}
	return c.JSON(out)
}

func (s *Server) handleScenario(c *fiber.Ctx) error {
	sc, err := s.catalog.Get(c.Params("scenario"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return s.play(c, sc)
}

// routeFormat serves a provider-shaped route. The scenario defaults to the
// one named after the format and is always rendered in that format.
func (s *Server) routeFormat(format Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Query("scenario", c.Get(ScenarioHeader, string(format)))
		sc, err := s.catalog.Get(name)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		sc.Format = format
		return s.play(c, sc)
	}
}

func (s *Server) play(c *fiber.Ctx, sc Scenario) error {
	enc := encoders[sc.Format]

	s.logger.Debug("playing scenario",
		"scenario", sc.Name,
		"format", sc.Format,
		"path", c.Path(),
	)

	c.Set(ScenarioHeader, sc.Name)

	if sc.Status != 0 {
		if sc.Format == FormatBedrock {
			c.Set("X-Amzn-ErrorType", bedrockEncoder{}.exception(&sc))
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(sc.Status).Send(enc.errorBody(&sc))
	}

	c.Set(fiber.HeaderContentType, enc.contentType())
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// fasthttp drains the pipe with chunked encoding and flushes each write,
	// so every frame reaches the client as soon as it is written.
	pr, pw := io.Pipe()
	go s.write(pw, sc, enc)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) write(pw *io.PipeWriter, sc Scenario, enc encoder) {
	err := s.script(pw, &sc, enc)
	switch {
	case err == nil:
		pw.Close()
	case errors.Is(err, errAbruptClose):
		s.logger.Debug("closing stream abruptly", "scenario", sc.Name)
		pw.CloseWithError(err)
	default:
		s.logger.Debug("stream ended early", "scenario", sc.Name, "error", err)
		pw.CloseWithError(err)
	}
}

// script writes the scenario's frames to w, honoring delays and failure
// positions.
func (s *Server) script(w io.Writer, sc *Scenario, enc encoder) error {
	write := func(frames ...[]byte) error {
		for _, f := range frames {
			if _, err := w.Write(f); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(enc.start(sc)...); err != nil {
		return err
	}

	malformedAt := sc.clamp(sc.MalformedAt)
	errorAt := sc.clamp(sc.ErrorAt)
	stallAt := sc.clamp(sc.StallAt)
	closeAt := sc.clamp(sc.CloseAt)

	for i := 0; i <= len(sc.Tokens); i++ {
		if at(malformedAt, i) {
			if err := write(enc.malformed()); err != nil {
				return err
			}
		}
		if at(errorAt, i) {
			return write(enc.inband(sc))
		}
		if at(stallAt, i) {
			if err := s.sleep(sc.stallFor, true); err != nil {
				return err
			}
		}
		if at(closeAt, i) {
			return errAbruptClose
		}
		if i == len(sc.Tokens) {
			break
		}

		if err := s.sleep(sc.delay, false); err != nil {
			return err
		}
		if err := write(enc.token(sc, sc.Tokens[i])); err != nil {
			return err
		}
	}

	return write(enc.finish(sc)...)
}

// sleep waits for d, or until Close. A zero d returns at once unless forever
// is set.
func (s *Server) sleep(d time.Duration, forever bool) error {
	if d == 0 && !forever {
		return nil
	}

	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-timeout:
		return nil
	case <-s.ctx.Done():
		return errServerClosed
	}
}
