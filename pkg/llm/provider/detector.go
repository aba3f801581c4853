package provider

import (
	"net/url"
	"strings"
)

// hostProviders maps well-known API hosts to provider identities.
var hostProviders = map[string]string{
	"api.openai.com":                    OpenAI,
	"api.groq.com":                      Groq,
	"api.mistral.ai":                    Mistral,
	"api.perplexity.ai":                 Perplexity,
	"openrouter.ai":                     OpenRouter,
	"api.anthropic.com":                 Anthropic,
	"generativelanguage.googleapis.com": Gemini,
}

// Detect infers the provider identity from an endpoint URL. Well-known hosts
// map to their provider; Ollama is recognized by its default port or API
// paths; other local OpenAI-style endpoints map to Local. Anything else falls
// back to BestEffort.
func Detect(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return BestEffort
	}

	host := strings.ToLower(u.Hostname())
	if name, ok := hostProviders[host]; ok {
		return name
	}

	switch {
	case strings.HasPrefix(host, "bedrock-runtime.") || strings.HasPrefix(host, "bedrock-runtime-fips."):
		return Bedrock
	case strings.HasSuffix(host, "-aiplatform.googleapis.com") && strings.Contains(u.Path, "/publishers/google/"):
		return Gemini
	case u.Port() == "11434" || strings.HasPrefix(u.Path, "/api/chat") || strings.HasPrefix(u.Path, "/api/generate"):
		return Ollama
	case isLocal(host) && strings.HasSuffix(u.Path, "/chat/completions"):
		return Local
	}

	return BestEffort
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local")
}
