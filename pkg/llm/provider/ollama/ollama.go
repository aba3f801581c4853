// Package ollama decodes Ollama's newline-delimited JSON stream.
package ollama

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) Framing() wire.Framing {
	return wire.NDJSON
}

func (o *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var chunk ollamaStreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", llm.ErrMalformedFrame, err)
	}

	if chunk.Error != "" {
		return nil, &llm.ProviderError{
			StatusCode: http.StatusInternalServerError,
			Message:    chunk.Error,
			Body:       string(payload),
		}
	}

	if chunk.Model == "" && chunk.Message == nil && chunk.Response == nil && !chunk.Done {
		return nil, fmt.Errorf("%w: ollama: no message in chunk", llm.ErrMalformedFrame)
	}

	// The done line closes the stream: it carries the stop reason and eval
	// counts, never further content.
	if chunk.Done {
		reason := chunk.DoneReason
		if reason == "" {
			reason = "stop"
		}

		result := &llm.StreamChunk{
			Model:        chunk.Model,
			FinishReason: reason,
			Done:         true,
		}
		if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 {
			result.Usage = &llm.Usage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
				TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
			}
		}
		return result, nil
	}

	result := &llm.StreamChunk{Model: chunk.Model}

	switch {
	case chunk.Message != nil:
		result.Content = chunk.Message.Content
		for i, tc := range chunk.Message.ToolCalls {
			args, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				return nil, fmt.Errorf("%w: ollama: tool arguments: %v", llm.ErrMalformedFrame, err)
			}
			result.ToolCalls = append(result.ToolCalls, llm.ToolCallDelta{
				Index:     i,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: string(args),
				Complete:  true,
			})
		}
	case chunk.Response != nil:
		result.Content = *chunk.Response
	}

	if result.Empty() {
		return nil, nil
	}
	return result, nil
}
