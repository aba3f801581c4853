package bedrock_test

import (
	"encoding/base64"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

func envelope(event string) []byte {
	return []byte(`{"bytes":"` + base64.StdEncoding.EncodeToString([]byte(event)) + `"}`)
}

var _ = Describe("Bedrock Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = bedrock.New()
	})

	It("returns 'bedrock' with NDJSON framing", func() {
		Expect(p.Name()).To(Equal("bedrock"))
		Expect(p.Framing()).To(Equal(wire.NDJSON))
	})

	Describe("ParseStreamChunk", func() {
		Context("with Anthropic Claude events", func() {
			It("maps text deltas", func() {
				chunk, err := p.ParseStreamChunk([]byte(
					`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal("Hi"))
			})

			It("unwraps base64 byte envelopes", func() {
				chunk, err := p.ParseStreamChunk(envelope(
					`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.FinishReason).To(Equal("end_turn"))
			})

			It("unwraps nested chunk envelopes", func() {
				encoded := base64.StdEncoding.EncodeToString([]byte(`{"type":"message_stop"}`))
				chunk, err := p.ParseStreamChunk([]byte(`{"chunk":{"bytes":"` + encoded + `"}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Done).To(BeTrue())
			})
		})

		Context("with Amazon Titan events", func() {
			It("maps outputText and completionReason", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"outputText":"Hello","index":0,"completionReason":null}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal("Hello"))
				Expect(chunk.Done).To(BeFalse())

				chunk, err = p.ParseStreamChunk([]byte(`{"outputText":"","index":0,"completionReason":"FINISH",
					"amazon-bedrock-invocationMetrics":{"inputTokenCount":4,"outputTokenCount":9}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.FinishReason).To(Equal("FINISH"))
				Expect(chunk.Done).To(BeTrue())
				Expect(chunk.Usage.TotalTokens).To(Equal(13))
			})
		})

		Context("with Meta Llama events", func() {
			It("maps generation and stop_reason", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"generation":" world","stop_reason":"stop"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal(" world"))
				Expect(chunk.FinishReason).To(Equal("stop"))
				Expect(chunk.Done).To(BeTrue())
			})
		})

		Context("with Mistral events", func() {
			It("maps the first output", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"outputs":[{"text":"Bonjour","stop_reason":null}]}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal("Bonjour"))
				Expect(chunk.FinishReason).To(BeEmpty())
			})
		})

		Context("with Cohere events", func() {
			It("maps text and the finishing event", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"text":"Hey","is_finished":false}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal("Hey"))

				chunk, err = p.ParseStreamChunk([]byte(`{"is_finished":true,"finish_reason":"COMPLETE"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.FinishReason).To(Equal("COMPLETE"))
				Expect(chunk.Done).To(BeTrue())
			})
		})

		Context("with Converse stream events", func() {
			It("maps text deltas and the stop reason", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"contentBlockDelta":{"contentBlockIndex":0,"delta":{"text":"Yo"}}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Content).To(Equal("Yo"))

				chunk, err = p.ParseStreamChunk([]byte(`{"messageStop":{"stopReason":"end_turn"}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.FinishReason).To(Equal("end_turn"))
			})

			It("maps tool use start and input deltas", func() {
				chunk, err := p.ParseStreamChunk([]byte(
					`{"contentBlockStart":{"contentBlockIndex":1,"start":{"toolUse":{"toolUseId":"tooluse_1","name":"lookup"}}}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.ToolCalls).To(Equal([]llm.ToolCallDelta{{Index: 1, ID: "tooluse_1", Name: "lookup"}}))

				chunk, err = p.ParseStreamChunk([]byte(
					`{"contentBlockDelta":{"contentBlockIndex":1,"delta":{"toolUse":{"input":"{\"q\":"}}}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.ToolCalls[0].Arguments).To(Equal(`{"q":`))
			})

			It("skips usage-only metadata", func() {
				chunk, err := p.ParseStreamChunk([]byte(`{"metadata":{"usage":{"inputTokens":3,"outputTokens":5,"totalTokens":8}}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk).To(BeNil())
			})
		})

		It("returns a ProviderError for stream exceptions", func() {
			_, err := p.ParseStreamChunk([]byte(`{"throttlingException":{"message":"Too many requests"}}`))

			var perr *llm.ProviderError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.IsRateLimited()).To(BeTrue())
			Expect(perr.Type).To(Equal("throttlingException"))
		})

		It("rejects bad base64 as malformed", func() {
			_, err := p.ParseStreamChunk([]byte(`{"bytes":"!!!"}`))
			Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
		})

		It("rejects unknown event shapes as malformed", func() {
			_, err := p.ParseStreamChunk([]byte(`{"foo":1}`))
			Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
		})
	})
})
