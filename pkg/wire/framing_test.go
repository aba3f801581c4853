package wire_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/wire"
)

// splitAll feeds parts through Split in order, then flushes, the way a reader
// consumes successive network deliveries.
func splitAll(framing wire.Framing, parts ...string) []wire.Frame {
	var (
		all    []wire.Frame
		buffer string
	)
	for _, part := range parts {
		frames, remaining, done := wire.Split(framing, buffer, part)
		all = append(all, frames...)
		if done {
			return all
		}
		buffer = remaining
	}
	if frame, ok := wire.Flush(framing, buffer); ok {
		all = append(all, frame)
	}
	return all
}

var _ = Describe("Split", func() {
	Context("with SSE framing", func() {
		It("extracts complete data lines and keeps the trailing fragment", func() {
			frames, remaining, done := wire.Split(wire.SSE, "", "data: {\"a\":1}\n\ndata: {\"b\"")

			Expect(done).To(BeFalse())
			Expect(frames).To(Equal([]wire.Frame{{Data: `{"a":1}`}}))
			Expect(remaining).To(Equal(`data: {"b"`))
		})

		It("completes a line carried over in the buffer", func() {
			frames, remaining, _ := wire.Split(wire.SSE, `data: {"b"`, ":2}\n")

			Expect(frames).To(Equal([]wire.Frame{{Data: `{"b":2}`}}))
			Expect(remaining).To(BeEmpty())
		})

		It("drops comments, blank lines and non-data fields", func() {
			input := ": OPENROUTER PROCESSING\n\nevent: content_block_delta\nid: 7\nretry: 3000\ndata: hello\n"
			frames, _, _ := wire.Split(wire.SSE, "", input)

			Expect(frames).To(Equal([]wire.Frame{{Data: "hello"}}))
		})

		It("accepts data lines without a space after the colon", func() {
			frames, _, _ := wire.Split(wire.SSE, "", "data:no-space\n")
			Expect(frames).To(Equal([]wire.Frame{{Data: "no-space"}}))
		})

		It("drops empty data lines", func() {
			frames, _, _ := wire.Split(wire.SSE, "", "data:\ndata: \n")
			Expect(frames).To(BeEmpty())
		})

		It("strips carriage returns", func() {
			frames, _, _ := wire.Split(wire.SSE, "", "data: {\"a\":1}\r\n\r\n")
			Expect(frames).To(Equal([]wire.Frame{{Data: `{"a":1}`}}))
		})

		It("stops at the [DONE] sentinel and discards the rest of the delivery", func() {
			input := "data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"late\":true}\ndata: {\"partial"
			frames, remaining, done := wire.Split(wire.SSE, "", input)

			Expect(done).To(BeTrue())
			Expect(remaining).To(BeEmpty())
			Expect(frames).To(Equal([]wire.Frame{{Data: `{"a":1}`}, {Done: true}}))
		})

		It("only treats [DONE] as a sentinel when it is the whole payload", func() {
			frames, _, done := wire.Split(wire.SSE, "", "data: {\"content\":\"[DONE]\"}\n")

			Expect(done).To(BeFalse())
			Expect(frames).To(Equal([]wire.Frame{{Data: `{"content":"[DONE]"}`}}))
		})
	})

	Context("with NDJSON framing", func() {
		It("treats every non-blank JSON line as a frame", func() {
			input := "{\"message\":{\"content\":\"Hi\"},\"done\":false}\n\n{\"done\":true}\n"
			frames, remaining, done := wire.Split(wire.NDJSON, "", input)

			Expect(done).To(BeFalse())
			Expect(remaining).To(BeEmpty())
			Expect(frames).To(HaveLen(2))
			Expect(frames[1].Data).To(Equal(`{"done":true}`))
		})

		It("drops lines that are not JSON", func() {
			input := "time=2024-01-01 level=INFO msg=loading\n{\"ok\":true}\n{\"trunc\n"
			frames, _, _ := wire.Split(wire.NDJSON, "", input)

			Expect(frames).To(Equal([]wire.Frame{{Data: `{"ok":true}`}}))
		})
	})

	Context("with Auto framing", func() {
		It("accepts both SSE data lines and bare JSON lines", func() {
			input := "data: {\"a\":1}\n{\"b\":2}\nevent: ping\nnoise\n"
			frames, _, _ := wire.Split(wire.Auto, "", input)

			Expect(frames).To(Equal([]wire.Frame{{Data: `{"a":1}`}, {Data: `{"b":2}`}}))
		})
	})
})

var _ = Describe("Flush", func() {
	It("returns an unterminated final line", func() {
		frame, ok := wire.Flush(wire.SSE, "data: unterminated")
		Expect(ok).To(BeTrue())
		Expect(frame.Data).To(Equal("unterminated"))
	})

	It("returns nothing for an empty buffer", func() {
		_, ok := wire.Flush(wire.NDJSON, "")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Fragmentation invariance", func() {
	sequences := map[wire.Framing]string{
		wire.SSE: "data: {\"choices\":[{\"delta\":{\"content\":\"Hél\"}}]}\n\n" +
			": keep-alive\r\n" +
			"event: message\ndata: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\r\n\r\n" +
			"data: [DONE]\n\ndata: {\"ignored\":true}\n",
		wire.NDJSON: "{\"message\":{\"content\":\"Hi\"},\"done\":false}\n" +
			"not json\n\n" +
			"{\"message\":{\"content\":\"\"},\"done\":true}",
	}

	for framing, sequence := range sequences {
		It("yields the same frames for every two-way and three-way split ("+framing.String()+")", func() {
			whole := splitAll(framing, sequence)
			Expect(whole).NotTo(BeEmpty())

			for i := 0; i <= len(sequence); i++ {
				Expect(splitAll(framing, sequence[:i], sequence[i:])).To(Equal(whole),
					"split at %d", i)

				for j := i; j <= len(sequence); j++ {
					Expect(splitAll(framing, sequence[:i], sequence[i:j], sequence[j:])).To(Equal(whole),
						"split at %d and %d", i, j)
				}
			}
		})
	}

	It("yields the same frames when split into single bytes", func() {
		sequence := sequences[wire.SSE]
		parts := make([]string, 0, len(sequence))
		for i := range len(sequence) {
			parts = append(parts, sequence[i:i+1])
		}

		Expect(splitAll(wire.SSE, parts...)).To(Equal(splitAll(wire.SSE, sequence)))
	})
})
