// Package gemini decodes the Google Gemini streamGenerateContent response
// stream (alt=sse). Each SSE data line carries a complete
// GenerateContentResponse object; there is no terminal sentinel.
package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

type provider struct{}

// New
func New() *provider { return &provider{} }

// Name
func (p *provider) Name() string {
	return "gemini"
}

func (p *provider) Framing() wire.Framing {
	return wire.SSE
}

func (p *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var chunk geminiStreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", llm.ErrMalformedFrame, err)
	}

	if chunk.Error != nil {
		status := chunk.Error.Code
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return nil, &llm.ProviderError{
			StatusCode: status,
			Type:       chunk.Error.Status,
			Message:    chunk.Error.Message,
			Body:       string(payload),
		}
	}

	if chunk.Candidates == nil && chunk.PromptFeedback == nil && chunk.UsageMetadata == nil {
		return nil, fmt.Errorf("%w: gemini: no candidates in chunk", llm.ErrMalformedFrame)
	}

	result := &llm.StreamChunk{
		Model: chunk.ModelVersion,
		Usage: convertUsage(chunk.UsageMetadata),
	}

	// A blocked prompt produces no candidates, only feedback.
	if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" && len(chunk.Candidates) == 0 {
		result.FinishReason = chunk.PromptFeedback.BlockReason
		result.Done = true
		return result, nil
	}

	if len(chunk.Candidates) > 0 {
		candidate := chunk.Candidates[0]
		result.FinishReason = candidate.FinishReason

		if candidate.Content != nil {
			var text strings.Builder
			for _, part := range candidate.Content.Parts {
				if part.Thought {
					continue
				}
				text.WriteString(part.Text)

				if part.FunctionCall != nil {
					result.ToolCalls = append(result.ToolCalls, llm.ToolCallDelta{
						Index:     len(result.ToolCalls),
						ID:        part.FunctionCall.ID,
						Name:      part.FunctionCall.Name,
						Arguments: string(part.FunctionCall.Args),
						Complete:  true,
					})
				}
			}
			result.Content = text.String()
		}
	}

	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

func convertUsage(u *geminiUsageMetadata) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:         u.PromptTokenCount,
		CompletionTokens:     u.CandidatesTokenCount,
		TotalTokens:          u.TotalTokenCount,
		CacheReadInputTokens: u.CachedContentTokenCount,
	}
}
