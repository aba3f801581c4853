// Package eventstream defines the lifecycle events a stream session emits
// when it ends and the publishers that deliver them.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/llmstream/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionCompleted is emitted after a stream ends cleanly.
	EventTypeSessionCompleted = "llmstream.session.completed"

	// EventTypeSessionFailed is emitted after a stream ends with an error.
	EventTypeSessionFailed = "llmstream.session.failed"

	// EventTypeSessionClosed is emitted when the caller abandons a stream.
	EventTypeSessionClosed = "llmstream.session.closed"
)

// SessionEvent is a transport-neutral event payload for a finished stream
// session.
type SessionEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        EventSource   `json:"source"`
	Session       SessionMeta   `json:"session"`
	Response      *llm.Response `json:"response,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// EventSource identifies the upstream the session talked to.
type EventSource struct {
	Provider string `json:"provider"`
	Host     string `json:"host,omitempty"`
}

// SessionMeta captures session lifecycle metadata for the event.
type SessionMeta struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	DurationMs    int64     `json:"duration_ms"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	DroppedFrames int       `json:"dropped_frames,omitempty"`
}

// NewSessionEvent stamps an event of the given type with a fresh ID and the
// current time.
func NewSessionEvent(eventType string, source EventSource, session SessionMeta) *SessionEvent {
	return &SessionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Session:       session,
	}
}
