// Package stream runs one streaming LLM call end to end. A producer goroutine
// owns the HTTP connection, frames the body with pkg/wire, decodes frames with
// the provider's decoder and hands chunks to the consumer over a channel
// scoped to the session.
//
//	caller ── Open ──▶ producer ── HTTP ──▶ upstream
//	                      │
//	                body ─┴─▶ wire.Reader ─▶ decoder ─▶ chan ─▶ Next / Chunks
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/llmstream/pkg/eventstream"
	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

// Stream is one streaming session. A Stream is consumed by a single caller;
// Close may be called from any goroutine.
type Stream struct {
	id      string
	decoder provider.Provider
	cfg     *config
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	items chan llm.StreamChunk
	done  chan struct{}
	state atomic.Int32

	url string

	// Producer-owned; read by the consumer only after items is closed.
	failure error
	acc     llm.Accumulator
	dropped int
	status  int
	source  eventstream.EventSource
	started time.Time

	// Consumer-side terminal result, returned again by every later Next.
	mu       sync.Mutex
	terminal error

	closed    atomic.Bool
	closeOnce sync.Once
}

// Open sends req and waits for the upstream's status line. Connection
// failures return *llm.ConnectionError and non-2xx statuses return
// *llm.ProviderError; in both cases no Stream is produced. On success the
// body is decoded in the background and chunks are read with Next or Chunks.
// Cancelling ctx aborts the session.
func Open(ctx context.Context, req llm.Request, opts ...Option) (*Stream, error) {
	cfg := newConfig(opts)

	name := req.Provider
	if name == "" {
		name = provider.Detect(req.URL)
	}
	s, err := newStream(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	s.url = req.URL
	s.source.Host = hostOf(req.URL)

	httpReq, err := s.buildRequest(req)
	if err != nil {
		s.cancel(nil)
		return nil, err
	}

	started := make(chan error, 1)
	go s.produce(httpReq, started)

	if err := <-started; err != nil {
		return nil, err
	}
	return s, nil
}

// OpenReader runs a session over an already open body, such as a recorded
// wire transcript. No request is sent; decoding starts immediately.
func OpenReader(ctx context.Context, providerName string, body io.Reader, opts ...Option) (*Stream, error) {
	cfg := newConfig(opts)

	s, err := newStream(ctx, providerName, cfg)
	if err != nil {
		return nil, err
	}

	rc, ok := body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body)
	}

	s.setState(StateStreaming)
	go func() {
		defer s.finish()

		idle := s.startIdleTimer()
		defer idle.stop()
		s.pump(idle.wrap(rc), idle)
	}()
	return s, nil
}

func newStream(ctx context.Context, providerName string, cfg *config) (*Stream, error) {
	decoder := cfg.decoder
	if decoder == nil {
		var err error
		decoder, err = provider.New(providerName)
		if err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	sctx, cancel := context.WithCancelCause(ctx)

	return &Stream{
		id:      id,
		decoder: decoder,
		cfg:     cfg,
		logger:  cfg.logger.With("session_id", id, "provider", decoder.Name()),
		ctx:     sctx,
		cancel:  cancel,
		items:   make(chan llm.StreamChunk, cfg.bufferSize),
		done:    make(chan struct{}),
		source:  eventstream.EventSource{Provider: decoder.Name()},
		started: time.Now(),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Stream) ID() string {
	return s.id
}

// Provider returns the identity of the decoder in use.
func (s *Stream) Provider() string {
	return s.decoder.Name()
}

// State returns the current lifecycle phase.
func (s *Stream) State() State {
	return State(s.state.Load())
}

func (s *Stream) setState(state State) {
	s.state.Store(int32(state))
}

// Close abandons the stream: the request context is cancelled, the body is
// released and later calls to Next return llm.ErrStreamClosed. Close blocks
// until the producer has exited and is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel(llm.ErrStreamClosed)
	})
	<-s.done
	return nil
}

func (s *Stream) buildRequest(req llm.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(s.ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}

	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if httpReq.Header.Get("Content-Type") == "" && len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", acceptFor(s.decoder.Framing()))
	}
	return httpReq, nil
}

func acceptFor(f wire.Framing) string {
	switch f {
	case wire.SSE:
		return "text/event-stream"
	case wire.NDJSON:
		return "application/x-ndjson"
	default:
		return "text/event-stream, application/x-ndjson, application/json"
	}
}

// produce is the producer goroutine. It reports the Starting outcome on
// started exactly once, then pumps the body until a terminal state.
func (s *Stream) produce(req *http.Request, started chan<- error) {
	defer s.finish()

	// The idle window also covers the wait for the status line.
	idle := s.startIdleTimer()
	defer idle.stop()

	s.logger.Debug("sending stream request", "url", req.URL.Redacted())

	resp, err := s.cfg.client.Do(req)
	if err != nil {
		err = s.classify(&llm.ConnectionError{URL: s.url, Err: err})
		s.fail(err)
		started <- err
		return
	}

	s.status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := llm.ReadProviderError(resp)
		resp.Body.Close()
		s.fail(perr)
		started <- perr
		return
	}

	s.logger.Info("stream opened", "status", resp.StatusCode)
	s.setState(StateStreaming)
	started <- nil

	s.pump(idle.wrap(resp.Body), idle)
}

// pump frames, decodes and delivers the body until the stream ends.
func (s *Stream) pump(body io.ReadCloser, idle *idleTimer) {
	// Cancellation closes the body, which unblocks a pending Read.
	stop := context.AfterFunc(s.ctx, func() { body.Close() })
	defer func() {
		stop()
		body.Close()
	}()

	var readerOpts []wire.ReaderOption
	if s.cfg.tee != nil {
		readerOpts = append(readerOpts, wire.WithTee(s.cfg.tee))
	}
	if s.cfg.readSize > 0 {
		readerOpts = append(readerOpts, wire.WithReadSize(s.cfg.readSize))
	}
	if s.cfg.maxLineSize > 0 {
		readerOpts = append(readerOpts, wire.WithMaxLineSize(s.cfg.maxLineSize))
	}
	reader := wire.NewReader(body, s.decoder.Framing(), readerOpts...)

	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, wire.ErrTeeWrite) || errors.Is(err, wire.ErrLineTooLong) {
			s.fail(err)
			return
		}
		if err != nil {
			s.fail(s.classify(&llm.ConnectionError{URL: s.url, Err: err}))
			return
		}
		if frame.Done {
			s.logger.Debug("stream sentinel received")
			break
		}

		chunk, err := s.decoder.ParseStreamChunk([]byte(frame.Data))
		if err != nil {
			var perr *llm.ProviderError
			if errors.As(err, &perr) {
				s.fail(perr)
				return
			}
			s.dropped++
			s.logger.Debug("dropping undecodable frame", "error", err)
			continue
		}
		if chunk == nil || chunk.Empty() {
			continue
		}

		if !s.send(*chunk, idle) {
			s.fail(s.classify(s.ctx.Err()))
			return
		}
		if chunk.Done {
			s.logger.Debug("terminal chunk received", "finish_reason", chunk.FinishReason)
			break
		}
	}

	s.setState(StateDraining)
	s.logger.Info("stream completed",
		"chunks", s.acc.Response().Chunks,
		"dropped_frames", s.dropped,
		"duration", time.Since(s.started),
	)
}

// send delivers a chunk unless the session is cancelled first. A slow
// consumer is not upstream silence, so the idle timer is paused while the
// channel is full.
func (s *Stream) send(chunk llm.StreamChunk, idle *idleTimer) bool {
	select {
	case s.items <- chunk:
		s.acc.Add(chunk)
		return true
	default:
	}

	idle.pause()
	defer idle.resume()

	select {
	case s.items <- chunk:
		s.acc.Add(chunk)
		return true
	case <-s.ctx.Done():
		return false
	}
}

// fail records the terminal error. The consumer receives it after every
// chunk already in the channel.
func (s *Stream) fail(err error) {
	s.failure = err
	if errors.Is(err, llm.ErrStreamClosed) {
		s.setState(StateClosed)
		s.logger.Debug("stream closed by caller")
		return
	}

	s.setState(StateFailed)
	s.logger.Warn("stream failed", "error", err, "duration", time.Since(s.started))
}

// classify maps an error observed by the producer to the session's error
// kinds. When the session context was cancelled its cause wins: the idle
// timer, Close, or the caller's context.
func (s *Stream) classify(err error) error {
	if cause := context.Cause(s.ctx); cause != nil {
		return cause
	}
	return err
}

// finish closes the channel, publishes the lifecycle event and then
// releases waiters on Close, so a returned Close means the event was handed
// to the publisher.
func (s *Stream) finish() {
	if s.State() == StateDraining {
		s.setState(StateCompleted)
	}
	close(s.items)
	s.cancel(nil)
	s.publish()
	close(s.done)
}

func (s *Stream) publish() {
	if s.cfg.publisher == nil {
		return
	}

	state := s.State()
	eventType := eventstream.EventTypeSessionCompleted
	switch state {
	case StateFailed:
		eventType = eventstream.EventTypeSessionFailed
	case StateClosed:
		eventType = eventstream.EventTypeSessionClosed
	}

	now := time.Now().UTC()
	event := eventstream.NewSessionEvent(eventType, s.source, eventstream.SessionMeta{
		ID:            s.id,
		State:         state.String(),
		StartedAt:     s.started.UTC(),
		CompletedAt:   now,
		DurationMs:    now.Sub(s.started).Milliseconds(),
		HTTPStatus:    s.status,
		DroppedFrames: s.dropped,
	})
	event.Response = s.acc.Response()
	if s.failure != nil && state != StateClosed {
		event.Error = s.failure.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.cfg.publisher.PublishSession(ctx, event); err != nil {
		s.logger.Warn("publishing session event failed", "error", err)
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
