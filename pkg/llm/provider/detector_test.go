package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm/provider"
)

var _ = Describe("Detect", func() {
	DescribeTable("infers the provider from the endpoint",
		func(endpoint, expected string) {
			Expect(provider.Detect(endpoint)).To(Equal(expected))
		},
		Entry("OpenAI", "https://api.openai.com/v1/chat/completions", provider.OpenAI),
		Entry("Groq", "https://api.groq.com/openai/v1/chat/completions", provider.Groq),
		Entry("Mistral", "https://api.mistral.ai/v1/chat/completions", provider.Mistral),
		Entry("Perplexity", "https://api.perplexity.ai/chat/completions", provider.Perplexity),
		Entry("OpenRouter", "https://openrouter.ai/api/v1/chat/completions", provider.OpenRouter),
		Entry("Anthropic", "https://api.anthropic.com/v1/messages", provider.Anthropic),
		Entry("Gemini", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:streamGenerateContent?alt=sse", provider.Gemini),
		Entry("Vertex Gemini", "https://us-central1-aiplatform.googleapis.com/v1/projects/p/locations/us-central1/publishers/google/models/gemini-2.0-flash:streamGenerateContent", provider.Gemini),
		Entry("Bedrock", "https://bedrock-runtime.us-east-1.amazonaws.com/model/anthropic.claude-v2/invoke-with-response-stream", provider.Bedrock),
		Entry("Ollama default port", "http://localhost:11434/api/chat", provider.Ollama),
		Entry("Ollama path on another port", "http://gpu-box:8080/api/generate", provider.Ollama),
		Entry("local OpenAI-compatible server", "http://localhost:8000/v1/chat/completions", provider.Local),
		Entry("unknown host", "https://llm.internal.example.com/v1/stream", provider.BestEffort),
		Entry("unparseable URL", "::not a url", provider.BestEffort),
	)

	It("ignores host case", func() {
		Expect(provider.Detect("https://API.OpenAI.com/v1/chat/completions")).To(Equal(provider.OpenAI))
	})
})
