package mockserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	contentTypeSSE    = "text/event-stream"
	contentTypeNDJSON = "application/x-ndjson"
)

// encoder renders a scenario in one provider's wire format.
type encoder interface {
	contentType() string
	start(s *Scenario) [][]byte
	token(s *Scenario, text string) []byte
	finish(s *Scenario) [][]byte
	inband(s *Scenario) []byte
	malformed() []byte
	errorBody(s *Scenario) []byte
}

var encoders = map[Format]encoder{
	FormatOpenAI:    openaiEncoder{},
	FormatAnthropic: anthropicEncoder{},
	FormatGemini:    geminiEncoder{},
	FormatOllama:    ollamaEncoder{},
	FormatBedrock:   bedrockEncoder{},
	FormatMock:      mockEncoder{},
}

// obj is shorthand for JSON object literals.
type obj = map[string]any

func sseFrame(event string, v any) []byte {
	data, _ := json.Marshal(v)
	if event == "" {
		return fmt.Appendf(nil, "data: %s\n\n", data)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event, data)
}

func ndjsonFrame(v any) []byte {
	data, _ := json.Marshal(v)
	return append(data, '\n')
}

// usage counts whitespace separated words as a token estimate.
func usage(s *Scenario) (prompt, completion int) {
	return 8, len(strings.Fields(strings.Join(s.Tokens, "")))
}

func finishOr(s *Scenario, def string) string {
	if s.Finish != "" {
		return s.Finish
	}
	return def
}

func errorTypeOr(s *Scenario, def string) string {
	if s.ErrorType != "" {
		return s.ErrorType
	}
	return def
}

func typedErrorBody(s *Scenario) []byte {
	data, _ := json.Marshal(obj{"error": obj{
		"type":    errorTypeOr(s, "api_error"),
		"message": s.errorMessage(),
	}})
	return data
}

type openaiEncoder struct{}

func (openaiEncoder) contentType() string { return contentTypeSSE }

func (openaiEncoder) chunk(s *Scenario, delta obj, finish any) obj {
	return obj{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   s.model(),
		"choices": []obj{{"index": 0, "delta": delta, "finish_reason": finish}},
	}
}

func (e openaiEncoder) start(s *Scenario) [][]byte {
	return [][]byte{sseFrame("", e.chunk(s, obj{"role": "assistant", "content": ""}, nil))}
}

func (e openaiEncoder) token(s *Scenario, text string) []byte {
	return sseFrame("", e.chunk(s, obj{"content": text}, nil))
}

func (e openaiEncoder) finish(s *Scenario) [][]byte {
	prompt, completion := usage(s)
	last := e.chunk(s, obj{}, finishOr(s, "stop"))
	last["usage"] = obj{
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      prompt + completion,
	}
	return [][]byte{sseFrame("", last), []byte("data: [DONE]\n\n")}
}

func (openaiEncoder) inband(s *Scenario) []byte {
	return sseFrame("", obj{"error": obj{
		"type":    errorTypeOr(s, "server_error"),
		"message": s.errorMessage(),
		"code":    nil,
	}})
}

func (openaiEncoder) malformed() []byte { return []byte("data: {\"choices\": [\n\n") }

func (openaiEncoder) errorBody(s *Scenario) []byte { return typedErrorBody(s) }

type anthropicEncoder struct{}

func (anthropicEncoder) contentType() string { return contentTypeSSE }

func (anthropicEncoder) events(s *Scenario) (start [][]byte, finish [][]byte) {
	prompt, completion := usage(s)
	start = [][]byte{
		sseFrame("message_start", obj{"type": "message_start", "message": obj{
			"id": "msg_mock", "type": "message", "role": "assistant", "model": s.model(),
			"content": []any{}, "usage": obj{"input_tokens": prompt, "output_tokens": 1},
		}}),
		sseFrame("content_block_start", obj{"type": "content_block_start", "index": 0,
			"content_block": obj{"type": "text", "text": ""}}),
		sseFrame("ping", obj{"type": "ping"}),
	}
	finish = [][]byte{
		sseFrame("content_block_stop", obj{"type": "content_block_stop", "index": 0}),
		sseFrame("message_delta", obj{"type": "message_delta",
			"delta": obj{"stop_reason": finishOr(s, "end_turn"), "stop_sequence": nil},
			"usage": obj{"output_tokens": completion}}),
		sseFrame("message_stop", obj{"type": "message_stop"}),
	}
	return start, finish
}

func (e anthropicEncoder) start(s *Scenario) [][]byte {
	start, _ := e.events(s)
	return start
}

func (anthropicEncoder) token(_ *Scenario, text string) []byte {
	return sseFrame("content_block_delta", obj{"type": "content_block_delta", "index": 0,
		"delta": obj{"type": "text_delta", "text": text}})
}

func (e anthropicEncoder) finish(s *Scenario) [][]byte {
	_, finish := e.events(s)
	return finish
}

func (anthropicEncoder) inband(s *Scenario) []byte {
	return sseFrame("error", obj{"type": "error", "error": obj{
		"type":    errorTypeOr(s, "api_error"),
		"message": s.errorMessage(),
	}})
}

func (anthropicEncoder) malformed() []byte {
	return []byte("event: content_block_delta\ndata: {\"type\": \"content_block_delta\",\n\n")
}

func (anthropicEncoder) errorBody(s *Scenario) []byte {
	data, _ := json.Marshal(obj{"type": "error", "error": obj{
		"type":    errorTypeOr(s, "api_error"),
		"message": s.errorMessage(),
	}})
	return data
}

type geminiEncoder struct{}

func (geminiEncoder) contentType() string { return contentTypeSSE }

func (geminiEncoder) start(*Scenario) [][]byte { return nil }

func (geminiEncoder) token(s *Scenario, text string) []byte {
	return sseFrame("", obj{
		"candidates": []obj{{
			"content": obj{"role": "model", "parts": []obj{{"text": text}}},
			"index":   0,
		}},
		"modelVersion": s.model(),
	})
}

func (geminiEncoder) finish(s *Scenario) [][]byte {
	prompt, completion := usage(s)
	return [][]byte{sseFrame("", obj{
		"candidates": []obj{{
			"content":      obj{"role": "model", "parts": []obj{{"text": ""}}},
			"finishReason": finishOr(s, "STOP"),
			"index":        0,
		}},
		"usageMetadata": obj{
			"promptTokenCount":     prompt,
			"candidatesTokenCount": completion,
			"totalTokenCount":      prompt + completion,
		},
		"modelVersion": s.model(),
	})}
}

func (geminiEncoder) status(s *Scenario) int {
	if s.Status != 0 {
		return s.Status
	}
	return http.StatusServiceUnavailable
}

func (e geminiEncoder) inband(s *Scenario) []byte {
	return sseFrame("", e.errorObj(s))
}

func (e geminiEncoder) errorObj(s *Scenario) obj {
	return obj{"error": obj{
		"code":    e.status(s),
		"message": s.errorMessage(),
		"status":  errorTypeOr(s, "UNAVAILABLE"),
	}}
}

func (geminiEncoder) malformed() []byte { return []byte("data: {\"candidates\": [{\n\n") }

func (e geminiEncoder) errorBody(s *Scenario) []byte {
	data, _ := json.Marshal(e.errorObj(s))
	return data
}

type ollamaEncoder struct{}

func (ollamaEncoder) contentType() string { return contentTypeNDJSON }

func (ollamaEncoder) start(*Scenario) [][]byte { return nil }

func (ollamaEncoder) token(s *Scenario, text string) []byte {
	return ndjsonFrame(obj{
		"model":      s.model(),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		"message":    obj{"role": "assistant", "content": text},
		"done":       false,
	})
}

func (ollamaEncoder) finish(s *Scenario) [][]byte {
	prompt, completion := usage(s)
	return [][]byte{ndjsonFrame(obj{
		"model":             s.model(),
		"created_at":        time.Now().UTC().Format(time.RFC3339Nano),
		"message":           obj{"role": "assistant", "content": ""},
		"done":              true,
		"done_reason":       finishOr(s, "stop"),
		"prompt_eval_count": prompt,
		"eval_count":        completion,
	})}
}

func (ollamaEncoder) inband(s *Scenario) []byte {
	return ndjsonFrame(obj{"error": s.errorMessage()})
}

func (ollamaEncoder) malformed() []byte { return []byte("{\"model\": \"mock\", \"message\":\n") }

func (ollamaEncoder) errorBody(s *Scenario) []byte {
	data, _ := json.Marshal(obj{"error": s.errorMessage()})
	return data
}

// bedrockEncoder wraps Anthropic events in the base64 {"bytes":...} envelope
// of InvokeModelWithResponseStream.
type bedrockEncoder struct{}

func (bedrockEncoder) contentType() string { return contentTypeNDJSON }

func (bedrockEncoder) wrap(sse []byte) []byte {
	// Strip the "event:" line and "data: " prefix to recover the JSON body.
	payload := string(sse)
	if i := strings.Index(payload, "data: "); i >= 0 {
		payload = payload[i+len("data: "):]
	}
	payload = strings.TrimSpace(payload)
	return ndjsonFrame(obj{"bytes": base64.StdEncoding.EncodeToString([]byte(payload))})
}

func (e bedrockEncoder) wrapAll(frames [][]byte) [][]byte {
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, e.wrap(f))
	}
	return out
}

func (e bedrockEncoder) start(s *Scenario) [][]byte {
	return e.wrapAll(anthropicEncoder{}.start(s))
}

func (e bedrockEncoder) token(s *Scenario, text string) []byte {
	return e.wrap(anthropicEncoder{}.token(s, text))
}

func (e bedrockEncoder) finish(s *Scenario) [][]byte {
	return e.wrapAll(anthropicEncoder{}.finish(s))
}

func (bedrockEncoder) exception(s *Scenario) string {
	if strings.HasSuffix(s.ErrorType, "Exception") {
		return s.ErrorType
	}
	return "modelStreamErrorException"
}

func (e bedrockEncoder) inband(s *Scenario) []byte {
	return ndjsonFrame(obj{e.exception(s): obj{"message": s.errorMessage()}})
}

func (bedrockEncoder) malformed() []byte { return []byte("{\"bytes\": \"not base64!\"}\n") }

func (bedrockEncoder) errorBody(s *Scenario) []byte {
	data, _ := json.Marshal(obj{"message": s.errorMessage()})
	return data
}

// mockEncoder emits the generic {"content":...} NDJSON shape.
type mockEncoder struct{}

func (mockEncoder) contentType() string { return contentTypeNDJSON }

func (mockEncoder) start(*Scenario) [][]byte { return nil }

func (mockEncoder) token(s *Scenario, text string) []byte {
	return ndjsonFrame(obj{"model": s.model(), "content": text})
}

func (mockEncoder) finish(s *Scenario) [][]byte {
	return [][]byte{ndjsonFrame(obj{"finish_reason": finishOr(s, "stop"), "done": true})}
}

func (mockEncoder) inband(s *Scenario) []byte {
	return ndjsonFrame(obj{"error": obj{
		"type":    errorTypeOr(s, "mock_error"),
		"message": s.errorMessage(),
	}})
}

func (mockEncoder) malformed() []byte { return []byte("{\"content\": \n") }

func (mockEncoder) errorBody(s *Scenario) []byte { return typedErrorBody(s) }
