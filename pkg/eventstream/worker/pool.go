// Package worker provides an asynchronous worker pool for publishing session
// events with the provided eventstream.Publisher.
//
// The pool decouples publishing from the stream producer so that a slow or
// unavailable event backend never stalls token delivery.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/llmstream/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher delivers events to the backend.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish call (defaults to 10s).
	PublishTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes session events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.SessionEvent
	wg     sync.WaitGroup
	logger *slog.Logger
	once   sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.SessionEvent, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishSession enqueues the event and returns immediately. It satisfies
// eventstream.Publisher so a pool can stand in wherever a publisher is
// expected; a full queue drops the event and returns an error.
func (p *Pool) PublishSession(_ context.Context, event *eventstream.SessionEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}
	if !p.Enqueue(event) {
		return fmt.Errorf("event %s dropped: queue full", event.EventID)
	}
	return nil
}

// Enqueue submits an event for publishing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the event being dropped
func (p *Pool) Enqueue(event *eventstream.SessionEvent) bool {
	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"session_id", event.Session.ID,
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_type", event.EventType,
			"session_id", event.Session.ID,
		)
		return false
	}
}

// Close signals workers to stop, waits for queued events to drain, then
// closes the publisher. Enqueueing after Close panics.
func (p *Pool) Close() error {
	var err error
	p.once.Do(func() {
		close(p.queue)
		p.wg.Wait()
		err = p.config.Publisher.Close()
	})
	return err
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.SessionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishSession(ctx, event); err != nil {
		p.logger.Warn("publishing session event failed",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err,
		)
		return
	}

	p.logger.Debug("session event published",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"session_id", event.Session.ID,
	)
}
