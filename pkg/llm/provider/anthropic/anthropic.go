// Package anthropic decodes the Anthropic Messages API event stream.
package anthropic

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

// Stream event types.
const (
	eventMessageStart      = "message_start"
	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
	eventPing              = "ping"
	eventError             = "error"
)

// errorStatus maps in-band error types to the HTTP status the same error
// carries when returned before the stream starts.
var errorStatus = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"not_found_error":       http.StatusNotFound,
	"request_too_large":     http.StatusRequestEntityTooLarge,
	"rate_limit_error":      http.StatusTooManyRequests,
	"api_error":             http.StatusInternalServerError,
	"overloaded_error":      529,
}

// provider implements the Provider interface for Anthropic's Claude API.
type provider struct{}

// New
func New() *provider { return &provider{} }

// Name
func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) Framing() wire.Framing {
	return wire.SSE
}

func (p *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: anthropic: %v", llm.ErrMalformedFrame, err)
	}

	return convertEvent(&event, payload)
}

// convertEvent maps one stream event onto a chunk. It returns (nil, nil) for
// events with nothing observable.
func convertEvent(event *anthropicStreamEvent, payload []byte) (*llm.StreamChunk, error) {
	switch event.Type {
	case eventContentBlockDelta:
		if event.Delta == nil {
			return nil, fmt.Errorf("%w: anthropic: content_block_delta without delta", llm.ErrMalformedFrame)
		}
		switch event.Delta.Type {
		case "text_delta":
			if event.Delta.Text == "" {
				return nil, nil
			}
			return &llm.StreamChunk{Content: event.Delta.Text}, nil
		case "input_json_delta":
			if event.Delta.PartialJSON == "" {
				return nil, nil
			}
			return &llm.StreamChunk{
				ToolCalls: []llm.ToolCallDelta{{
					Index:     event.Index,
					Arguments: event.Delta.PartialJSON,
				}},
			}, nil
		default:
			// thinking_delta and signature_delta are not part of the output text.
			return nil, nil
		}

	case eventContentBlockStart:
		block := event.ContentBlock
		if block == nil || block.Type != "tool_use" {
			return nil, nil
		}
		return &llm.StreamChunk{
			ToolCalls: []llm.ToolCallDelta{{
				Index: event.Index,
				ID:    block.ID,
				Name:  block.Name,
			}},
		}, nil

	case eventMessageDelta:
		if event.Delta == nil || event.Delta.StopReason == "" {
			return nil, nil
		}
		return &llm.StreamChunk{
			FinishReason: event.Delta.StopReason,
			Usage:        convertUsage(event.Usage),
		}, nil

	case eventMessageStop:
		return &llm.StreamChunk{FinishReason: "stop", Done: true}, nil

	case eventError:
		perr := &llm.ProviderError{
			StatusCode: http.StatusInternalServerError,
			Body:       string(payload),
		}
		if event.Error != nil {
			perr.Type = event.Error.Type
			perr.Message = event.Error.Message
			if status, ok := errorStatus[event.Error.Type]; ok {
				perr.StatusCode = status
			}
		}
		return nil, perr

	case eventMessageStart, eventContentBlockStop, eventPing:
		return nil, nil

	case "":
		return nil, fmt.Errorf("%w: anthropic: event without type", llm.ErrMalformedFrame)

	default:
		// Unknown event types are skipped so new server events do not
		// break old clients.
		return nil, nil
	}
}

func convertUsage(u *anthropicUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:             u.InputTokens,
		CompletionTokens:         u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}
