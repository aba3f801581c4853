package llm

import (
	"sort"
	"strings"
)

// Response is the complete result assembled from a stream of chunks.
type Response struct {
	// Model that generated the response
	Model string `json:"model,omitempty"`

	// Content is the concatenated text of every chunk.
	Content string `json:"content"`

	// ToolCalls are the tool calls assembled from ToolCallDelta increments,
	// ordered by index.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// FinishReason is the last finish reason seen on the stream.
	FinishReason string `json:"finish_reason,omitempty"`

	// Token usage metrics
	Usage *Usage `json:"usage,omitempty"`

	// Chunks is the number of chunks folded into the response.
	Chunks int `json:"chunks"`
}

// ToolCall is a fully assembled tool call.
type ToolCall struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage contains token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Cache token counts (Anthropic prompt caching)
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// Accumulator folds stream chunks into a Response. The zero value is ready
// to use. It is not safe for concurrent use.
type Accumulator struct {
	model   string
	content strings.Builder
	finish  string
	usage   *Usage
	tools   map[int]*ToolCall
	next    int
	chunks  int
}

// Add folds one chunk into the accumulated response.
func (a *Accumulator) Add(chunk StreamChunk) {
	a.chunks++

	if chunk.Model != "" {
		a.model = chunk.Model
	}
	a.content.WriteString(chunk.Content)
	if chunk.FinishReason != "" {
		a.finish = chunk.FinishReason
	}
	if chunk.Usage != nil {
		a.usage = mergeUsage(a.usage, chunk.Usage)
	}

	for _, tc := range chunk.ToolCalls {
		a.addToolCall(tc)
	}
}

// addToolCall merges incremental deltas by index. Complete deltas are whole
// calls and always take the next free index.
func (a *Accumulator) addToolCall(tc ToolCallDelta) {
	if a.tools == nil {
		a.tools = make(map[int]*ToolCall)
	}

	index := tc.Index
	if tc.Complete {
		index = a.next
	}
	if index >= a.next {
		a.next = index + 1
	}

	call, ok := a.tools[index]
	if !ok {
		call = &ToolCall{Index: index}
		a.tools[index] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Name != "" {
		call.Name = tc.Name
	}
	call.Arguments += tc.Arguments
}

// Response returns the response accumulated so far.
func (a *Accumulator) Response() *Response {
	resp := &Response{
		Model:        a.model,
		Content:      a.content.String(),
		FinishReason: a.finish,
		Chunks:       a.chunks,
	}

	if a.usage != nil {
		usage := *a.usage
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		resp.Usage = &usage
	}

	for _, call := range a.tools {
		resp.ToolCalls = append(resp.ToolCalls, *call)
	}
	sort.Slice(resp.ToolCalls, func(i, j int) bool {
		return resp.ToolCalls[i].Index < resp.ToolCalls[j].Index
	})

	return resp
}

// mergeUsage overlays the non-zero counts of next onto prev. Providers such
// as Anthropic split usage across several events.
func mergeUsage(prev, next *Usage) *Usage {
	if prev == nil {
		u := *next
		return &u
	}

	merged := *prev
	if next.PromptTokens > 0 {
		merged.PromptTokens = next.PromptTokens
	}
	if next.CompletionTokens > 0 {
		merged.CompletionTokens = next.CompletionTokens
	}
	if next.TotalTokens > 0 {
		merged.TotalTokens = next.TotalTokens
	}
	if next.CacheCreationInputTokens > 0 {
		merged.CacheCreationInputTokens = next.CacheCreationInputTokens
	}
	if next.CacheReadInputTokens > 0 {
		merged.CacheReadInputTokens = next.CacheReadInputTokens
	}
	return &merged
}
