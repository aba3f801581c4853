package llm

// StreamChunk is the canonical unit of incremental model output delivered to
// stream consumers. Provider decoders map their wire formats onto it.
type StreamChunk struct {
	// Model that generated the chunk, when the provider reports it.
	Model string `json:"model,omitempty"`

	// Content is the incremental text delta. Empty means absent.
	Content string `json:"content,omitempty"`

	// FinishReason is set only on the final chunk(s) of a stream
	// (e.g. "stop", "length", "end_turn", "error").
	FinishReason string `json:"finish_reason,omitempty"`

	// ToolCalls carries the tool/function call increments in this chunk,
	// in wire order. Most providers send at most one per chunk.
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`

	// Usage metrics (typically only present on final chunk)
	Usage *Usage `json:"usage,omitempty"`

	// Done marks the provider's terminal frame. The session stops reading
	// after a Done chunk.
	Done bool `json:"done,omitempty"`
}

// ToolCallDelta is one increment of a streamed tool call. ID and Name are
// usually only present on the first delta for a given Index; Arguments is a
// fragment of a JSON document that callers concatenate.
//
// Providers that send each call whole (Gemini, Ollama) set Complete. Their
// Index is only the call's position within the chunk, so consumers must not
// merge complete deltas by Index across chunks.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Complete  bool   `json:"complete,omitempty"`
}

// Empty reports whether the chunk carries nothing observable: no content, no
// finish reason and no tool call delta. Empty chunks are never delivered.
func (c *StreamChunk) Empty() bool {
	return c.Content == "" && c.FinishReason == "" && len(c.ToolCalls) == 0
}
