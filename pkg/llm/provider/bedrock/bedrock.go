// Package bedrock decodes AWS Bedrock response streams.
//
// InvokeModelWithResponseStream carries each model's native streaming events,
// so the decoder dispatches on the event shape: Anthropic Claude (Messages API
// events), Amazon Titan, Meta Llama, Mistral, Cohere, and the model-agnostic
// ConverseStream API. Events arrive one JSON object per line, optionally
// wrapped in a {"bytes":"<base64>"} envelope.
package bedrock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

// decoder is the subset of a provider needed to delegate Claude events.
type decoder interface {
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}

// Provider implements the Provider interface for AWS Bedrock.
type Provider struct {
	claude decoder
}

// New creates a new Bedrock provider.
func New() *Provider { return &Provider{claude: anthropic.New()} }

// Name returns the provider name.
func (p *Provider) Name() string {
	return "bedrock"
}

func (p *Provider) Framing() wire.Framing {
	return wire.NDJSON
}

func (p *Provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	inner, err := unwrap(payload)
	if err != nil {
		return nil, err
	}

	var event bedrockEvent
	if err := json.Unmarshal(inner, &event); err != nil {
		return nil, fmt.Errorf("%w: bedrock: %v", llm.ErrMalformedFrame, err)
	}

	if perr := exception(&event, inner); perr != nil {
		return nil, perr
	}

	if event.Type != "" {
		return p.claude.ParseStreamChunk(inner)
	}

	result := &llm.StreamChunk{Usage: invocationUsage(event.InvocationMetrics)}

	switch {
	case event.OutputText != nil || event.CompletionReason != nil:
		result.Content = deref(event.OutputText)
		result.FinishReason = deref(event.CompletionReason)
		result.Done = result.FinishReason != ""

	case event.Generation != nil:
		result.Content = *event.Generation
		result.FinishReason = deref(event.StopReason)
		result.Done = result.FinishReason != ""

	case len(event.Outputs) > 0:
		result.Content = event.Outputs[0].Text
		result.FinishReason = deref(event.Outputs[0].StopReason)
		result.Done = result.FinishReason != ""

	case event.Text != nil || event.IsFinished:
		result.Content = deref(event.Text)
		if event.IsFinished {
			result.FinishReason = deref(event.FinishReason)
			if result.FinishReason == "" {
				result.FinishReason = "stop"
			}
			result.Done = true
		}

	case event.ContentBlockDelta != nil:
		delta := event.ContentBlockDelta
		result.Content = deref(delta.Delta.Text)
		if delta.Delta.ToolUse != nil && delta.Delta.ToolUse.Input != "" {
			result.ToolCalls = []llm.ToolCallDelta{{
				Index:     delta.ContentBlockIndex,
				Arguments: delta.Delta.ToolUse.Input,
			}}
		}

	case event.ContentBlockStart != nil:
		start := event.ContentBlockStart
		if start.Start.ToolUse != nil {
			result.ToolCalls = []llm.ToolCallDelta{{
				Index: start.ContentBlockIndex,
				ID:    start.Start.ToolUse.ToolUseID,
				Name:  start.Start.ToolUse.Name,
			}}
		}

	case event.MessageStop != nil:
		result.FinishReason = event.MessageStop.StopReason

	case event.Metadata != nil, event.InvocationMetrics != nil:
		// Usage-only events.

	default:
		return nil, fmt.Errorf("%w: bedrock: unrecognized event shape", llm.ErrMalformedFrame)
	}

	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

// unwrap strips the base64 byte envelope when present and returns the model
// event JSON.
func unwrap(payload []byte) ([]byte, error) {
	var env bedrockEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: bedrock: %v", llm.ErrMalformedFrame, err)
	}

	var encoded string
	switch {
	case env.Bytes != nil:
		encoded = *env.Bytes
	case env.Chunk != nil:
		encoded = env.Chunk.Bytes
	default:
		return payload, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock: decoding event bytes: %v", llm.ErrMalformedFrame, err)
	}
	return decoded, nil
}

func exception(event *bedrockEvent, payload []byte) *llm.ProviderError {
	candidates := []struct {
		name   string
		status int
		ex     *bedrockException
	}{
		{"internalServerException", http.StatusInternalServerError, event.InternalServerException},
		{"modelStreamErrorException", http.StatusFailedDependency, event.ModelStreamErrorException},
		{"throttlingException", http.StatusTooManyRequests, event.ThrottlingException},
		{"validationException", http.StatusBadRequest, event.ValidationException},
		{"serviceUnavailableException", http.StatusServiceUnavailable, event.ServiceUnavailableException},
	}

	for _, c := range candidates {
		if c.ex == nil {
			continue
		}
		status := c.status
		if c.ex.OriginalStatusCode != 0 {
			status = c.ex.OriginalStatusCode
		}
		return &llm.ProviderError{
			StatusCode: status,
			Type:       c.name,
			Message:    c.ex.Message,
			Body:       string(payload),
		}
	}
	return nil
}

func invocationUsage(m *bedrockInvocationMetrics) *llm.Usage {
	if m == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     m.InputTokenCount,
		CompletionTokens: m.OutputTokenCount,
		TotalTokens:      m.InputTokenCount + m.OutputTokenCount,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
