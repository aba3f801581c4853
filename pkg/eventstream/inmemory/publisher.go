// Package inmemory provides an eventstream publisher that records events in
// memory for tests and for embedders that inspect events directly.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/llmstream/pkg/eventstream"
)

// ErrClosed is returned when publishing to a closed publisher.
var ErrClosed = errors.New("publisher closed")

// Publisher implements eventstream.Publisher using an in-memory slice.
type Publisher struct {
	// mu guards events and closed
	mu     sync.RWMutex
	events []*eventstream.SessionEvent
	closed bool
}

// NewPublisher creates a new in-memory publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishSession records the event.
func (p *Publisher) PublishSession(_ context.Context, event *eventstream.SessionEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (p *Publisher) Events() []*eventstream.SessionEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*eventstream.SessionEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Close stops accepting events. Recorded events remain readable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}
