// Package wire reassembles the raw bytes of an LLM streaming response into
// complete protocol frames: the payload of one SSE "data:" line, or one line
// of NDJSON. Fragments delivered by the HTTP transport may split a line across
// reads or carry several lines at once; an incomplete trailing fragment is
// carried over to the next read.
//
// Framing is a pure function over text deltas (Split, Flush). Reader layers
// it over an io.Reader and can tee the raw bytes to a recorder.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package wire

import (
	"encoding/json"
	"strings"
)

// Framing selects how lines are turned into frames.
type Framing int

const (
	// SSE frames are the payloads of "data:" lines. Comments, blank
	// keep-alive lines and "event:", "id:", "retry:" fields are dropped.
	SSE Framing = iota

	// NDJSON frames are non-blank lines holding a JSON value.
	NDJSON

	// Auto accepts both: "data:" lines are read as SSE and lines starting
	// with "{" as NDJSON. Anything else is dropped.
	Auto
)

// DoneSentinel is the SSE payload that marks the end of an OpenAI-style
// stream.
const DoneSentinel = "[DONE]"

func (f Framing) String() string {
	switch f {
	case SSE:
		return "sse"
	case NDJSON:
		return "ndjson"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Frame is one complete protocol unit. Frames are ephemeral: they are handed
// to a decoder immediately and never retained.
type Frame struct {
	// Data is the frame payload: the text after "data:" for SSE, the whole
	// line for NDJSON.
	Data string

	// Done is set on the terminal sentinel frame. Done frames carry no data.
	Done bool
}

// Split appends fragment to buffer and extracts every complete line as a
// frame. The last, possibly incomplete, segment is returned as the new
// buffer. When a terminal sentinel is found, extraction stops: lines after it
// are discarded, the buffer is reset and done is true.
func Split(framing Framing, buffer, fragment string) (frames []Frame, remaining string, done bool) {
	lines := strings.Split(buffer+fragment, "\n")
	remaining = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		frame, ok := parseLine(framing, line)
		if !ok {
			continue
		}

		frames = append(frames, frame)
		if frame.Done {
			return frames, "", true
		}
	}

	return frames, remaining, false
}

// Flush treats buffer as a final line when the stream ends without a
// trailing newline.
func Flush(framing Framing, buffer string) (Frame, bool) {
	if buffer == "" {
		return Frame{}, false
	}
	return parseLine(framing, buffer)
}

func parseLine(framing Framing, line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")

	switch framing {
	case SSE:
		return parseSSELine(line)
	case NDJSON:
		return parseNDJSONLine(line)
	case Auto:
		if strings.HasPrefix(line, "data:") {
			return parseSSELine(line)
		}
		if strings.HasPrefix(strings.TrimSpace(line), "{") {
			return parseNDJSONLine(line)
		}
	}

	return Frame{}, false
}

// parseSSELine keeps "data:" lines only. Per the SSE spec, a single space
// after the colon is optional and stripped if present.
func parseSSELine(line string) (Frame, bool) {
	field, value, ok := strings.Cut(line, ":")
	if !ok || field != "data" {
		return Frame{}, false
	}

	value = strings.TrimPrefix(value, " ")
	if value == "" {
		return Frame{}, false
	}
	if strings.TrimSpace(value) == DoneSentinel {
		return Frame{Done: true}, true
	}

	return Frame{Data: value}, true
}

// parseNDJSONLine drops blank lines and lines that are not JSON, which are
// partial writes or log noise interleaved by local inference servers.
func parseNDJSONLine(line string) (Frame, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !json.Valid([]byte(line)) {
		return Frame{}, false
	}
	return Frame{Data: line}, true
}
