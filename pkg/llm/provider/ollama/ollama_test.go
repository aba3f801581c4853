package ollama_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/ollama"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

var _ = Describe("Ollama Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = ollama.New()
	})

	It("returns 'ollama' with NDJSON framing", func() {
		Expect(p.Name()).To(Equal("ollama"))
		Expect(p.Framing()).To(Equal(wire.NDJSON))
	})

	Describe("ParseStreamChunk", func() {
		It("maps message content", func() {
			chunk, err := p.ParseStreamChunk([]byte(
				`{"model":"llama3.2","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Hi"},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Model).To(Equal("llama3.2"))
			Expect(chunk.Content).To(Equal("Hi"))
			Expect(chunk.FinishReason).To(BeEmpty())
			Expect(chunk.Done).To(BeFalse())
		})

		It("maps the generate API response field", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","response":"The","done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("The"))
		})

		It("finishes with 'stop' and no content on the done line", func() {
			chunk, err := p.ParseStreamChunk([]byte(
				`{"model":"llama3.2","message":{"role":"assistant","content":"ignored"},"done":true,"prompt_eval_count":26,"eval_count":8}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(BeEmpty())
			Expect(chunk.FinishReason).To(Equal("stop"))
			Expect(chunk.Done).To(BeTrue())
			Expect(chunk.Usage).To(Equal(&llm.Usage{PromptTokens: 26, CompletionTokens: 8, TotalTokens: 34}))
		})

		It("uses done_reason when present", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","done":true,"done_reason":"length"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.FinishReason).To(Equal("length"))
		})

		It("maps tool calls with JSON-encoded arguments", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"",
				"tool_calls":[{"function":{"name":"get_weather","arguments":{"city":"Toronto"}}}]},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.ToolCalls).To(HaveLen(1))
			Expect(chunk.ToolCalls[0].Name).To(Equal("get_weather"))
			Expect(chunk.ToolCalls[0].Arguments).To(MatchJSON(`{"city":"Toronto"}`))
			Expect(chunk.ToolCalls[0].Complete).To(BeTrue())
		})

		It("maps every tool call in a message", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"",
				"tool_calls":[{"function":{"name":"a","arguments":{"x":1}}},{"function":{"name":"b","arguments":{"y":2}}}]},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.ToolCalls).To(HaveLen(2))
			Expect(chunk.ToolCalls[0].Name).To(Equal("a"))
			Expect(chunk.ToolCalls[1].Name).To(Equal("b"))
			Expect(chunk.ToolCalls[1].Index).To(Equal(1))
		})

		It("skips empty content lines", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
		})

		It("returns a ProviderError for in-band errors", func() {
			_, err := p.ParseStreamChunk([]byte(`{"error":"model runner has unexpectedly stopped"}`))

			var perr *llm.ProviderError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Message).To(Equal("model runner has unexpectedly stopped"))
		})

		It("rejects lines with no known fields as malformed", func() {
			_, err := p.ParseStreamChunk([]byte(`{"status":"pulling manifest"}`))
			Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
		})
	})
})
