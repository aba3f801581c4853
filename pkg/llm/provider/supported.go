package provider

import (
	"fmt"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/besteffort"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/gemini"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/ollama"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic  = "anthropic"
	OpenAI     = "openai"
	Groq       = "groq"
	Mistral    = "mistral"
	Perplexity = "perplexity"
	OpenRouter = "openrouter"
	Local      = "local"
	Gemini     = "gemini"
	Ollama     = "ollama"
	Bedrock    = "bedrock"
	Mock       = "mock"
	BestEffort = "besteffort"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{
		Anthropic, OpenAI, Groq, Mistral, Perplexity, OpenRouter, Local,
		Gemini, Ollama, Bedrock, Mock, BestEffort,
	}
}

// New creates a new Provider instance for the given provider type.
// Returns an error wrapping llm.ErrUnknownProvider if the provider type is
// not recognized.
func New(providerType string) (Provider, error) {
	switch providerType {
	case Anthropic:
		return anthropic.New(), nil
	case OpenAI:
		return openai.New(), nil
	case Groq, Mistral, Perplexity, OpenRouter, Local:
		return openai.NewCompatible(providerType), nil
	case Gemini:
		return gemini.New(), nil
	case Ollama:
		return ollama.New(), nil
	case Bedrock:
		return bedrock.New(), nil
	case Mock:
		return besteffort.NewNamed(Mock), nil
	case BestEffort:
		return besteffort.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", llm.ErrUnknownProvider, providerType, SupportedProviders())
	}
}
