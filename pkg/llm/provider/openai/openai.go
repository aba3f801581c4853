// Package openai decodes the OpenAI Chat Completions streaming format, which
// is shared by Groq, Mistral, Perplexity, OpenRouter and local
// OpenAI-compatible servers (llama.cpp, vLLM, LM Studio).
//
// Frames are SSE "data:" lines terminated by "data: [DONE]".
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

// provider implements the Provider interface for OpenAI-compatible APIs.
type provider struct {
	name string
}

// New returns the decoder for OpenAI itself.
func New() *provider { return &provider{name: "openai"} }

// NewCompatible returns the decoder for an OpenAI-compatible API reported
// under the given provider identity.
func NewCompatible(name string) *provider { return &provider{name: name} }

func (p *provider) Name() string {
	return p.name
}

func (p *provider) Framing() wire.Framing {
	return wire.SSE
}

func (p *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var chunk openaiStreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrMalformedFrame, p.name, err)
	}

	if chunk.Error != nil {
		return nil, &llm.ProviderError{
			StatusCode: errorStatus(chunk.Error.Code),
			Type:       chunk.Error.Type,
			Message:    chunk.Error.Message,
			Body:       string(payload),
		}
	}

	if chunk.Choices == nil && chunk.Usage == nil && chunk.XGroq == nil {
		return nil, fmt.Errorf("%w: %s: no choices in chunk", llm.ErrMalformedFrame, p.name)
	}

	result := &llm.StreamChunk{
		Model: chunk.Model,
		Usage: chunkUsage(&chunk),
	}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]

		if choice.Delta.Content != nil {
			result.Content = *choice.Delta.Content
		}
		if choice.FinishReason != nil {
			result.FinishReason = *choice.FinishReason
		}

		for _, tc := range choice.Delta.ToolCalls {
			if tc.ID == "" && tc.Function.Name == "" && tc.Function.Arguments == "" {
				continue
			}
			result.ToolCalls = append(result.ToolCalls, llm.ToolCallDelta{
				Index:     tc.Index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}

	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

func chunkUsage(chunk *openaiStreamChunk) *llm.Usage {
	usage := chunk.Usage
	if usage == nil && chunk.XGroq != nil {
		usage = chunk.XGroq.Usage
	}
	if usage == nil {
		return nil
	}

	return &llm.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}

// errorStatus extracts an HTTP-like status from an in-band error code.
// OpenRouter uses numeric codes; OpenAI uses strings such as
// "rate_limit_exceeded".
func errorStatus(code any) int {
	if n, ok := code.(float64); ok {
		return int(n)
	}
	return 0
}
