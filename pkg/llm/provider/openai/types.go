package openai

// openaiStreamChunk represents one chat.completion.chunk object. The same
// shape is used by Groq, Mistral, Perplexity, OpenRouter and local
// OpenAI-compatible servers.
type openaiStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   *openaiUsage   `json:"usage,omitempty"`

	// Groq reports usage in an x_groq extension on the final chunk.
	XGroq *struct {
		Usage *openaiUsage `json:"usage,omitempty"`
	} `json:"x_groq,omitempty"`

	// OpenRouter and some compatible servers report mid-stream failures in-band.
	Error *openaiError `json:"error,omitempty"`
}

type openaiChoice struct {
	Index        int         `json:"index"`
	Delta        openaiDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// openaiDelta is the incremental message in a streamed choice.
type openaiDelta struct {
	Role      string                `json:"role,omitempty"`
	Content   *string               `json:"content"`
	ToolCalls []openaiToolCallDelta `json:"tool_calls,omitempty"`
}

type openaiToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openaiError struct {
	// Code is a string for OpenAI and a number for OpenRouter.
	Code    any    `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}
