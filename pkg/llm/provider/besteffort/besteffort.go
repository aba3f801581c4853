// Package besteffort decodes streams of unknown or mixed provenance. It is
// used for the mock backend and for OpenAI-like endpoints whose exact
// dialect is not known up front.
package besteffort

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/gemini"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/ollama"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

type decoder interface {
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}

// provider implements the Provider interface as a fallback for unknown API
// formats. It recognizes each known wire shape by its distinguishing keys and
// otherwise extracts common field names.
type provider struct {
	name string

	anthropic decoder
	openai    decoder
	gemini    decoder
	ollama    decoder
	bedrock   decoder
}

func New() *provider { return NewNamed("besteffort") }

// NewNamed returns a best-effort decoder reported under the given provider
// identity.
func NewNamed(name string) *provider {
	return &provider{
		name:      name,
		anthropic: anthropic.New(),
		openai:    openai.NewCompatible(name),
		gemini:    gemini.New(),
		ollama:    ollama.New(),
		bedrock:   bedrock.New(),
	}
}

func (b *provider) Name() string {
	return b.name
}

// Framing is Auto: SSE data lines and bare JSON lines are both accepted.
func (b *provider) Framing() wire.Framing {
	return wire.Auto
}

// probe records which distinguishing keys a payload carries.
type probe struct {
	Type       string          `json:"type"`
	Choices    json.RawMessage `json:"choices"`
	Candidates json.RawMessage `json:"candidates"`
	Message    json.RawMessage `json:"message"`
	Done       *bool           `json:"done"`
	Error      json.RawMessage `json:"error"`

	OutputText        json.RawMessage `json:"outputText"`
	Generation        json.RawMessage `json:"generation"`
	Outputs           json.RawMessage `json:"outputs"`
	ContentBlockDelta json.RawMessage `json:"contentBlockDelta"`
	Bytes             json.RawMessage `json:"bytes"`
}

// generic is the fallback shape of hand-rolled streaming servers.
type generic struct {
	Model        string  `json:"model"`
	Content      *string `json:"content"`
	Text         *string `json:"text"`
	Response     *string `json:"response"`
	Delta        *string `json:"delta"`
	FinishReason string  `json:"finish_reason"`
	StopReason   string  `json:"stop_reason"`
	Done         bool    `json:"done"`
}

func (b *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var keys probe
	if err := json.Unmarshal(payload, &keys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrMalformedFrame, b.name, err)
	}

	switch {
	case keys.Type != "":
		return b.anthropic.ParseStreamChunk(payload)
	case present(keys.Choices):
		return b.openai.ParseStreamChunk(payload)
	case present(keys.Candidates):
		return b.gemini.ParseStreamChunk(payload)
	case present(keys.Message) && keys.Done != nil:
		return b.ollama.ParseStreamChunk(payload)
	case present(keys.OutputText), present(keys.Generation), present(keys.Outputs),
		present(keys.ContentBlockDelta), present(keys.Bytes):
		return b.bedrock.ParseStreamChunk(payload)
	case present(keys.Error):
		return nil, errorFrom(keys.Error, payload)
	}

	return parseGeneric(b.name, payload)
}

func parseGeneric(name string, payload []byte) (*llm.StreamChunk, error) {
	var g generic
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrMalformedFrame, name, err)
	}

	content := firstOf(g.Content, g.Text, g.Response, g.Delta)
	if content == nil && g.FinishReason == "" && g.StopReason == "" && !g.Done {
		return nil, fmt.Errorf("%w: %s: no recognizable fields", llm.ErrMalformedFrame, name)
	}

	result := &llm.StreamChunk{Model: g.Model}
	if content != nil {
		result.Content = *content
	}

	result.FinishReason = g.FinishReason
	if result.FinishReason == "" {
		result.FinishReason = g.StopReason
	}
	if g.Done {
		if result.FinishReason == "" {
			result.FinishReason = "stop"
		}
		result.Done = true
	}

	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

// errorFrom builds a ProviderError from an "error" value that is either a
// string or an object with a message.
func errorFrom(raw json.RawMessage, payload []byte) error {
	perr := &llm.ProviderError{StatusCode: 500, Body: string(payload)}

	var msg string
	if json.Unmarshal(raw, &msg) == nil {
		perr.Message = msg
		return perr
	}

	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    any    `json:"code"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%w: error field: %v", llm.ErrMalformedFrame, err)
	}
	perr.Type = obj.Type
	perr.Message = obj.Message
	if code, ok := obj.Code.(float64); ok && code >= 400 {
		perr.StatusCode = int(code)
	}
	return perr
}

// present reports whether a key was set to a non-null value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func firstOf(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
