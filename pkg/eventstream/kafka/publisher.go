// Package kafka publishes session events to a Kafka topic using
// segmentio/kafka-go. Events are JSON encoded and keyed by session ID so all
// events of a session land on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/llmstream/pkg/eventstream"
)

const defaultWriteTimeout = 10 * time.Second

// ErrNoBrokers is returned when a publisher is configured without brokers.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// ErrNoTopic is returned when a publisher is configured without a topic.
var ErrNoTopic = errors.New("kafka: no topic configured")

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses (host:port).
	Brokers []string

	// Topic receives every session event.
	Topic string

	// ClientID identifies this producer to the brokers.
	ClientID string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// Publisher implements eventstream.Publisher on a Kafka writer.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher creates a publisher writing to the configured topic.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, ErrNoTopic
	}

	transport := &kafkago.Transport{ClientID: c.ClientID}
	if transport.ClientID == "" {
		transport.ClientID = "llmstream"
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}

	return newPublisher(w, c.WriteTimeout), nil
}

func newPublisher(w messageWriter, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Publisher{writer: w, timeout: timeout}
}

// PublishSession encodes the event and writes it synchronously.
func (p *Publisher) PublishSession(ctx context.Context, event *eventstream.SessionEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding session event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Session.ID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing session event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
