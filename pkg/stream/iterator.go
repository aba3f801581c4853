package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/papercomputeco/llmstream/pkg/llm"
)

// Next returns the next chunk. It returns io.EOF once the stream ended
// cleanly, or the error that ended it after every chunk that preceded the
// error was returned. The stream is not restartable: after the end, every
// call returns the same io.EOF or error. After Close, Next returns
// llm.ErrStreamClosed.
//
// Next waits on the session channel in windows of the poll interval and
// polls again while the upstream is silent; the idle timeout decides when
// silence becomes an error. Cancelling ctx interrupts only this call.
func (s *Stream) Next(ctx context.Context) (llm.StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal != nil {
		return llm.StreamChunk{}, s.terminal
	}

	for {
		if s.closed.Load() {
			s.terminal = llm.ErrStreamClosed
			return llm.StreamChunk{}, s.terminal
		}

		poll := time.NewTimer(s.cfg.pollInterval)
		select {
		case chunk, ok := <-s.items:
			poll.Stop()
			if !ok {
				s.terminal = s.result()
				return llm.StreamChunk{}, s.terminal
			}
			return chunk, nil

		case <-ctx.Done():
			poll.Stop()
			return llm.StreamChunk{}, ctx.Err()

		case <-poll.C:
			s.logger.Debug("no chunk within poll interval", "state", s.State().String())
		}
	}
}

// result is the end-of-sequence outcome. It must only be called after the
// channel is closed.
func (s *Stream) result() error {
	if s.failure != nil {
		return s.failure
	}
	return io.EOF
}

// Chunks returns an iterator over the remaining chunks for use with
// range-over-func. Iteration stops at the end of the stream; an error ends
// iteration after being yielded once. Breaking out of the loop closes the
// stream.
//
//	for chunk, err := range s.Chunks(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Print(chunk.Content)
//	}
func (s *Stream) Chunks(ctx context.Context) iter.Seq2[llm.StreamChunk, error] {
	return func(yield func(llm.StreamChunk, error) bool) {
		for {
			chunk, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(llm.StreamChunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				s.Close()
				return
			}
		}
	}
}

// Collect drains the stream into a single response. On error the partial
// response accumulated so far is returned alongside it.
func (s *Stream) Collect(ctx context.Context) (*llm.Response, error) {
	var acc llm.Accumulator
	for chunk, err := range s.Chunks(ctx) {
		if err != nil {
			return acc.Response(), err
		}
		acc.Add(chunk)
	}
	return acc.Response(), nil
}
