package gemini_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/gemini"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

var _ = Describe("Gemini Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = gemini.New()
	})

	It("returns 'gemini' with SSE framing", func() {
		Expect(p.Name()).To(Equal("gemini"))
		Expect(p.Framing()).To(Equal(wire.SSE))
	})

	Describe("ParseStreamChunk", func() {
		It("concatenates the text parts of the first candidate", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{
				"candidates": [{"content": {"role": "model", "parts": [{"text": "Hel"}, {"text": "lo"}]}, "index": 0}],
				"modelVersion": "gemini-2.0-flash"
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("Hello"))
			Expect(chunk.Model).To(Equal("gemini-2.0-flash"))
			Expect(chunk.FinishReason).To(BeEmpty())
		})

		It("skips thought parts", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"candidates": [{"content": {"parts": [
				{"text": "planning...", "thought": true}, {"text": "Answer"}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("Answer"))
		})

		It("sets content and finish reason on the same chunk", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{
				"candidates": [{"content": {"parts": [{"text": "."}]}, "finishReason": "STOP"}],
				"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 7, "totalTokenCount": 12}
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("."))
			Expect(chunk.FinishReason).To(Equal("STOP"))
			Expect(chunk.Usage).To(Equal(&llm.Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}))
		})

		It("yields a finish-only chunk with no content", func() {
			chunk, err := p.ParseStreamChunk([]byte(
				`{"candidates": [{"content": {"parts": [{"text": ""}]}, "finishReason": "MAX_TOKENS"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.FinishReason).To(Equal("MAX_TOKENS"))
			Expect(chunk.Content).To(BeEmpty())
		})

		It("maps function calls to a tool call delta", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"candidates": [{"content": {"parts": [
				{"functionCall": {"name": "get_weather", "args": {"location": "Paris"}}}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.ToolCalls).To(HaveLen(1))
			Expect(chunk.ToolCalls[0].Name).To(Equal("get_weather"))
			Expect(chunk.ToolCalls[0].Arguments).To(MatchJSON(`{"location":"Paris"}`))
			Expect(chunk.ToolCalls[0].Complete).To(BeTrue())
		})

		It("keeps parallel function calls in one chunk", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"candidates": [{"content": {"parts": [
				{"functionCall": {"name": "a", "args": {"x": 1}}},
				{"functionCall": {"name": "b", "args": {"y": 2}}}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.ToolCalls).To(HaveLen(2))

			var acc llm.Accumulator
			acc.Add(*chunk)
			calls := acc.Response().ToolCalls
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Name).To(Equal("a"))
			Expect(calls[0].Arguments).To(MatchJSON(`{"x":1}`))
			Expect(calls[1].Name).To(Equal("b"))
			Expect(calls[1].Arguments).To(MatchJSON(`{"y":2}`))
		})

		It("keeps function calls from separate chunks apart", func() {
			var acc llm.Accumulator
			for _, payload := range []string{
				`{"candidates": [{"content": {"parts": [{"functionCall": {"name": "a", "args": {"x": 1}}}]}}]}`,
				`{"candidates": [{"content": {"parts": [{"functionCall": {"name": "b", "args": {"y": 2}}}]}}]}`,
			} {
				chunk, err := p.ParseStreamChunk([]byte(payload))
				Expect(err).NotTo(HaveOccurred())
				acc.Add(*chunk)
			}

			calls := acc.Response().ToolCalls
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Index).To(Equal(0))
			Expect(calls[0].Name).To(Equal("a"))
			Expect(calls[0].Arguments).To(MatchJSON(`{"x":1}`))
			Expect(calls[1].Index).To(Equal(1))
			Expect(calls[1].Name).To(Equal("b"))
			Expect(calls[1].Arguments).To(MatchJSON(`{"y":2}`))
		})

		It("terminates on a blocked prompt", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.FinishReason).To(Equal("SAFETY"))
			Expect(chunk.Done).To(BeTrue())
		})

		It("skips usage-only chunks", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"usageMetadata": {"promptTokenCount": 5}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
		})

		It("returns a ProviderError for in-band errors", func() {
			_, err := p.ParseStreamChunk([]byte(
				`{"error": {"code": 429, "message": "Resource exhausted", "status": "RESOURCE_EXHAUSTED"}}`))

			var perr *llm.ProviderError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.IsRateLimited()).To(BeTrue())
			Expect(perr.Type).To(Equal("RESOURCE_EXHAUSTED"))
		})

		It("rejects objects with no known fields as malformed", func() {
			_, err := p.ParseStreamChunk([]byte(`{"hello": "world"}`))
			Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
		})

		It("rejects invalid JSON as malformed", func() {
			_, err := p.ParseStreamChunk([]byte(`not json`))
			Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
		})
	})
})
