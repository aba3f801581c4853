package stream

import (
	"io"
	"time"

	"github.com/papercomputeco/llmstream/pkg/llm"
)

// idleTimer cancels the session with llm.ErrStreamTimeout when no body bytes
// arrive for the configured window. Only time spent waiting on the upstream
// counts: the timer is paused while the producer waits for the consumer. A
// zero window disables it.
type idleTimer struct {
	timer  *time.Timer
	window time.Duration
}

func (s *Stream) startIdleTimer() *idleTimer {
	if s.cfg.idleTimeout <= 0 {
		return &idleTimer{}
	}
	return &idleTimer{
		window: s.cfg.idleTimeout,
		timer: time.AfterFunc(s.cfg.idleTimeout, func() {
			s.cancel(llm.ErrStreamTimeout)
		}),
	}
}

func (t *idleTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

// pause stops the timer while the producer is blocked on the consumer.
func (t *idleTimer) pause() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

// resume re-arms a full window.
func (t *idleTimer) resume() {
	if t.timer != nil {
		t.timer.Reset(t.window)
	}
}

// wrap returns a body whose reads re-arm the timer.
func (t *idleTimer) wrap(body io.ReadCloser) io.ReadCloser {
	if t.timer == nil {
		return body
	}
	return &idleBody{ReadCloser: body, idle: t}
}

type idleBody struct {
	io.ReadCloser
	idle *idleTimer
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.idle.timer.Reset(b.idle.window)
	}
	return n, err
}
