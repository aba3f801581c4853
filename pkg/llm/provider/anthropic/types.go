package anthropic

// anthropicStreamEvent represents one Messages API streaming event. Only the
// fields of the event types that carry observable output are decoded.
type anthropicStreamEvent struct {
	Type string `json:"type"`

	// content_block_start / content_block_delta
	Index        int                    `json:"index"`
	ContentBlock *anthropicContentBlock `json:"content_block,omitempty"`

	// content_block_delta and message_delta share the key with different
	// shapes; the union is decoded and interpreted by Type.
	Delta *anthropicDelta `json:"delta,omitempty"`

	// message_start
	Message *struct {
		Model string          `json:"model"`
		Usage *anthropicUsage `json:"usage,omitempty"`
	} `json:"message,omitempty"`

	// message_delta
	Usage *anthropicUsage `json:"usage,omitempty"`

	// error
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

type anthropicDelta struct {
	// text_delta, input_json_delta, thinking_delta, signature_delta
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`

	// message_delta
	StopReason   string  `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence,omitempty"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}
