package bedrock

// bedrockEnvelope is the payload wrapper of InvokeModelWithResponseStream
// events once the binary event-stream framing has been converted to JSON
// lines by a gateway.
type bedrockEnvelope struct {
	Bytes *string `json:"bytes,omitempty"`
	Chunk *struct {
		Bytes string `json:"bytes"`
	} `json:"chunk,omitempty"`
}

// bedrockEvent is the union of the per-model streaming shapes. Exactly one
// group of fields is populated for any given event.
type bedrockEvent struct {
	// Anthropic Claude: the Messages API event, delegated by Type.
	Type string `json:"type,omitempty"`

	// Amazon Titan
	OutputText       *string `json:"outputText,omitempty"`
	CompletionReason *string `json:"completionReason,omitempty"`

	// Meta Llama
	Generation *string `json:"generation,omitempty"`
	StopReason *string `json:"stop_reason,omitempty"`

	// Mistral
	Outputs []struct {
		Text       string  `json:"text"`
		StopReason *string `json:"stop_reason"`
	} `json:"outputs,omitempty"`

	// Cohere Command
	Text         *string `json:"text,omitempty"`
	FinishReason *string `json:"finish_reason,omitempty"`
	IsFinished   bool    `json:"is_finished,omitempty"`

	// Converse stream
	ContentBlockStart *bedrockContentBlockStart `json:"contentBlockStart,omitempty"`
	ContentBlockDelta *bedrockContentBlockDelta `json:"contentBlockDelta,omitempty"`
	MessageStop       *struct {
		StopReason string `json:"stopReason"`
	} `json:"messageStop,omitempty"`
	Metadata *struct {
		Usage *bedrockConverseUsage `json:"usage,omitempty"`
	} `json:"metadata,omitempty"`

	// Attached to the final event of every InvokeModel stream.
	InvocationMetrics *bedrockInvocationMetrics `json:"amazon-bedrock-invocationMetrics,omitempty"`

	// Stream exceptions
	InternalServerException     *bedrockException `json:"internalServerException,omitempty"`
	ModelStreamErrorException   *bedrockException `json:"modelStreamErrorException,omitempty"`
	ThrottlingException         *bedrockException `json:"throttlingException,omitempty"`
	ValidationException         *bedrockException `json:"validationException,omitempty"`
	ServiceUnavailableException *bedrockException `json:"serviceUnavailableException,omitempty"`
}

type bedrockContentBlockStart struct {
	ContentBlockIndex int `json:"contentBlockIndex"`
	Start             struct {
		ToolUse *struct {
			ToolUseID string `json:"toolUseId"`
			Name      string `json:"name"`
		} `json:"toolUse,omitempty"`
	} `json:"start"`
}

type bedrockContentBlockDelta struct {
	ContentBlockIndex int `json:"contentBlockIndex"`
	Delta             struct {
		Text    *string `json:"text,omitempty"`
		ToolUse *struct {
			Input string `json:"input"`
		} `json:"toolUse,omitempty"`
	} `json:"delta"`
}

type bedrockConverseUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

type bedrockInvocationMetrics struct {
	InputTokenCount  int `json:"inputTokenCount"`
	OutputTokenCount int `json:"outputTokenCount"`
}

type bedrockException struct {
	Message            string `json:"message"`
	OriginalStatusCode int    `json:"originalStatusCode,omitempty"`
}
