// Package provider maps each LLM provider's streaming wire format onto the
// canonical llm.StreamChunk. One decoder exists per provider family; the
// stream session selects it once by provider identity.
package provider

import (
	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

// Provider decodes the streaming responses of one provider family.
// Implementations are pure: no I/O, no shared state, safe for concurrent use.
type Provider interface {
	// Name returns the provider identity (e.g., "anthropic", "openai", "groq", "ollama")
	Name() string

	// Framing returns how the provider's response body is split into frames.
	Framing() wire.Framing

	// ParseStreamChunk converts a single frame payload into the internal format.
	// Returns (nil, nil) if the frame carries nothing observable (e.g. pings,
	// role-only deltas, usage-only frames).
	// Returns an error wrapping llm.ErrMalformedFrame if the payload is not
	// JSON or matches no known shape; callers drop such frames.
	// Returns an *llm.ProviderError for in-band error events.
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}
