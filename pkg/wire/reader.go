package wire

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	defaultReadSize    = 4 * 1024
	defaultMaxLineSize = 1024 * 1024
)

var (
	// ErrTeeWrite wraps failures of the tee writer, distinguishing them from
	// failures of the source.
	ErrTeeWrite = errors.New("writing wire tee")

	// ErrLineTooLong is returned when an unterminated line grows past the
	// reader's maximum line size.
	ErrLineTooLong = errors.New("wire line too long")
)

// Reader reads frames from a source io.Reader, applying Split to each raw
// fragment as it arrives. When a tee writer is configured every raw byte is
// written to it verbatim, which lets a caller record the wire transcript while
// consuming parsed frames.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────┐
// │  Reader.Next()   │──▶│ tee io.Writer     │
// └──────────────────┘   └───────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Frame       │
// └──────────────────┘
//
// Reader is not safe for concurrent use.
type Reader struct {
	src     io.Reader
	tee     io.Writer
	framing Framing
	chunk   []byte
	maxLine int

	// buffer holds the incomplete trailing line of the last fragment.
	buffer  string
	pending []Frame
	done    bool
	err     error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTee writes every raw byte read from the source to w.
func WithTee(w io.Writer) ReaderOption {
	return func(r *Reader) {
		r.tee = w
	}
}

// WithReadSize sets the size of each read from the source.
func WithReadSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.chunk = make([]byte, n)
		}
	}
}

// WithMaxLineSize bounds the length of a single line. Defaults to 1 MiB.
func WithMaxLineSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxLine = n
		}
	}
}

// NewReader returns a Reader that parses frames from src using framing.
func NewReader(src io.Reader, framing Framing, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:     src,
		framing: framing,
		maxLine: defaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.chunk == nil {
		r.chunk = make([]byte, defaultReadSize)
	}
	return r
}

// Next returns the next frame. It blocks until a complete frame is
// available. A terminal sentinel is returned as a Frame with Done set, after
// which Next returns io.EOF. When the source ends without a sentinel, any
// unterminated last line is flushed before io.EOF.
//
// Frames already extracted are always returned before a read error.
func (r *Reader) Next() (Frame, error) {
	for {
		if len(r.pending) > 0 {
			frame := r.pending[0]
			r.pending = r.pending[1:]
			return frame, nil
		}
		if r.done {
			return Frame{}, io.EOF
		}
		if r.err != nil {
			return Frame{}, r.err
		}

		r.fill()
	}
}

// fill performs one read from the source and splits whatever arrived.
func (r *Reader) fill() {
	n, err := r.src.Read(r.chunk)
	if n > 0 {
		if r.tee != nil {
			if _, werr := r.tee.Write(r.chunk[:n]); werr != nil {
				r.err = fmt.Errorf("%w: %w", ErrTeeWrite, werr)
				return
			}
		}

		if r.split(string(r.chunk[:n])) {
			return
		}
	}

	if err == nil {
		return
	}

	if errors.Is(err, io.EOF) {
		if frame, ok := Flush(r.framing, r.buffer); ok {
			r.pending = append(r.pending, frame)
		}
		r.buffer = ""
		r.done = true
		return
	}

	r.err = err
}

// split extracts frames from one fragment. It reports whether reading should
// stop: a sentinel was found or the carried line outgrew maxLine.
func (r *Reader) split(fragment string) bool {
	if !strings.Contains(fragment, "\n") {
		// Nothing to extract yet; skip re-splitting the whole buffer.
		r.buffer += fragment
	} else {
		frames, remaining, done := Split(r.framing, r.buffer, fragment)
		r.buffer = remaining
		r.pending = append(r.pending, frames...)
		if done {
			r.done = true
			return true
		}
	}

	if len(r.buffer) > r.maxLine {
		r.buffer = ""
		r.err = fmt.Errorf("%w: over %d bytes", ErrLineTooLong, r.maxLine)
		return true
	}
	return false
}
