package besteffort_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/llm/provider/besteffort"
	"github.com/papercomputeco/llmstream/pkg/wire"
)

var _ = Describe("BestEffort Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = besteffort.New()
	})

	It("returns 'besteffort' with Auto framing", func() {
		Expect(p.Name()).To(Equal("besteffort"))
		Expect(p.Framing()).To(Equal(wire.Auto))
	})

	It("reports a custom identity", func() {
		Expect(besteffort.NewNamed("mock").Name()).To(Equal("mock"))
	})

	DescribeTable("recognizes known wire shapes",
		func(payload, content, finish string) {
			chunk, err := p.ParseStreamChunk([]byte(payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).NotTo(BeNil())
			Expect(chunk.Content).To(Equal(content))
			Expect(chunk.FinishReason).To(Equal(finish))
		},
		Entry("OpenAI", `{"choices":[{"index":0,"delta":{"content":"a"},"finish_reason":null}]}`, "a", ""),
		Entry("Anthropic", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"b"}}`, "b", ""),
		Entry("Gemini", `{"candidates":[{"content":{"parts":[{"text":"c"}]},"finishReason":"STOP"}]}`, "c", "STOP"),
		Entry("Ollama", `{"model":"m","message":{"role":"assistant","content":"d"},"done":false}`, "d", ""),
		Entry("Titan", `{"outputText":"e","completionReason":null}`, "e", ""),
		Entry("generic content", `{"content":"f"}`, "f", ""),
		Entry("generic text with finish", `{"text":"g","finish_reason":"stop"}`, "g", "stop"),
		Entry("generic response", `{"response":"h"}`, "h", ""),
	)

	It("treats a generic done flag as terminal", func() {
		chunk, err := p.ParseStreamChunk([]byte(`{"done":true}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(chunk.FinishReason).To(Equal("stop"))
		Expect(chunk.Done).To(BeTrue())
	})

	It("returns a ProviderError for error strings", func() {
		_, err := p.ParseStreamChunk([]byte(`{"error":"boom"}`))

		var perr *llm.ProviderError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Message).To(Equal("boom"))
	})

	It("returns a ProviderError for error objects", func() {
		_, err := p.ParseStreamChunk([]byte(`{"error":{"type":"server_error","message":"overloaded","code":503}}`))

		var perr *llm.ProviderError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.StatusCode).To(Equal(503))
		Expect(perr.Type).To(Equal("server_error"))
	})

	It("rejects unrecognizable objects as malformed", func() {
		_, err := p.ParseStreamChunk([]byte(`{"id":7}`))
		Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
	})

	It("rejects invalid JSON as malformed", func() {
		_, err := p.ParseStreamChunk([]byte(`{`))
		Expect(errors.Is(err, llm.ErrMalformedFrame)).To(BeTrue())
	})
})
