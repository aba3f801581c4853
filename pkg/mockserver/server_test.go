package mockserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/logger"
	"github.com/papercomputeco/llmstream/pkg/stream"
)

var _ = Describe("script", func() {
	var s *Server

	BeforeEach(func() {
		var err error
		s, err = New(Config{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)
	})

	// Every format must decode back to the scripted text through the
	// matching provider decoder.
	DescribeTable("renders a decodable stream",
		func(format Format, providerName, finish string) {
			sc := Scenario{Name: "t", Format: format, Tokens: []string{"Hel", "lo", ", ", "world", "!"}}
			Expect(sc.Validate()).To(Succeed())

			var buf bytes.Buffer
			Expect(s.script(&buf, &sc, encoders[format])).To(Succeed())

			st, err := stream.OpenReader(context.Background(), providerName, &buf)
			Expect(err).NotTo(HaveOccurred())
			resp, err := st.Collect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Hello, world!"))
			Expect(resp.FinishReason).To(Equal(finish))
		},
		Entry("openai", FormatOpenAI, "openai", "stop"),
		Entry("anthropic", FormatAnthropic, "anthropic", "stop"),
		Entry("gemini", FormatGemini, "gemini", "STOP"),
		Entry("ollama", FormatOllama, "ollama", "stop"),
		Entry("bedrock", FormatBedrock, "bedrock", "stop"),
		Entry("mock", FormatMock, "mock", "stop"),
	)

	It("reports usage in the ollama finish frame", func() {
		sc := Scenario{Name: "t", Format: FormatOllama, Tokens: []string{"Hi there"}}
		Expect(sc.Validate()).To(Succeed())

		var buf bytes.Buffer
		Expect(s.script(&buf, &sc, encoders[FormatOllama])).To(Succeed())

		st, err := stream.OpenReader(context.Background(), "ollama", &buf)
		Expect(err).NotTo(HaveOccurred())
		resp, err := st.Collect(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Usage).NotTo(BeNil())
		Expect(resp.Usage.PromptTokens).To(Equal(8))
		Expect(resp.Usage.CompletionTokens).To(Equal(2))
	})

	It("injects a malformed frame that sessions drop", func() {
		sc := Scenario{Name: "t", Format: FormatMock, Tokens: []string{"a", "b"}, MalformedAt: intp(1)}
		Expect(sc.Validate()).To(Succeed())

		var buf bytes.Buffer
		Expect(s.script(&buf, &sc, encoders[FormatMock])).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`{"content": ` + "\n"))

		st, err := stream.OpenReader(context.Background(), "mock", &buf)
		Expect(err).NotTo(HaveOccurred())
		resp, err := st.Collect(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("ab"))
	})

	It("stops at an abrupt close", func() {
		sc := Scenario{Name: "t", Format: FormatMock, Tokens: []string{"a", "b"}, CloseAt: intp(1)}
		Expect(sc.Validate()).To(Succeed())

		var buf bytes.Buffer
		err := s.script(&buf, &sc, encoders[FormatMock])
		Expect(err).To(MatchError(errAbruptClose))
		Expect(buf.String()).NotTo(ContainSubstring(`"b"`))
	})

	It("releases a stall when the server closes", func() {
		sc := Scenario{Name: "t", Format: FormatMock, Tokens: []string{"a"}, StallAt: intp(0)}
		Expect(sc.Validate()).To(Succeed())

		done := make(chan error, 1)
		go func() { done <- s.script(io.Discard, &sc, encoders[FormatMock]) }()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		Expect(s.Close()).To(Succeed())
		Eventually(done).Should(Receive(MatchError(errServerClosed)))
	})
})

var _ = Describe("Server", func() {
	var s *Server

	BeforeEach(func() {
		var err error
		s, err = New(Config{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("routes", func() {
		It("answers health checks", func() {
			resp, err := s.server.Test(httptestRequest(http.MethodGet, "/healthz"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("lists scenarios", func() {
			resp, err := s.server.Test(httptestRequest(http.MethodGet, "/mock/scenarios"))
			Expect(err).NotTo(HaveOccurred())
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring(`{"name":"stall","format":"mock"}`))
		})

		It("returns 404 for an unknown scenario", func() {
			resp, err := s.server.Test(httptestRequest(http.MethodPost, "/mock/nope"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("answers error scenarios with the provider's error body", func() {
			resp, err := s.server.Test(httptestRequest(http.MethodPost, "/v1/chat/completions?scenario=rate-limited"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))

			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring(`"type":"rate_limit_error"`))
		})

		It("renders the scenario in the route's format", func() {
			req := httptestRequest(http.MethodPost, "/api/chat")
			req.Header.Set(ScenarioHeader, "openai")

			resp, err := s.server.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Content-Type")).To(Equal(contentTypeNDJSON))
			Expect(resp.Header.Get(ScenarioHeader)).To(Equal("openai"))

			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring(`"done":true`))
		})
	})

	Describe("streaming over TCP", func() {
		var base string

		BeforeEach(func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			base = "http://" + listener.Addr().String()

			go func() { _ = s.RunWithListener(listener) }()
			DeferCleanup(s.Close)
		})

		open := func(path, providerName string, opts ...stream.Option) (*stream.Stream, error) {
			return stream.Open(context.Background(), llm.Request{
				Provider: providerName,
				URL:      base + path,
				Body:     []byte(`{"stream":true}`),
			}, opts...)
		}

		It("streams a detected OpenAI-compatible endpoint", func() {
			st, err := open("/v1/chat/completions", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Provider()).To(Equal("local"))

			resp, err := st.Collect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Hello, world!"))
			Expect(resp.Model).To(Equal("gpt-4o-mini"))
		})

		It("drops the malformed frame", func() {
			st, err := open("/mock/malformed", "openai")
			Expect(err).NotTo(HaveOccurred())

			resp, err := st.Collect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Hello"))
		})

		It("surfaces an in-band provider error after the earlier tokens", func() {
			st, err := open("/mock/overloaded", "anthropic")
			Expect(err).NotTo(HaveOccurred())

			chunk, err := st.Next(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("Hel"))

			_, err = st.Collect(context.Background())
			var perr *llm.ProviderError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Type).To(Equal("overloaded_error"))
		})

		It("reports a connection error on an abrupt close", func() {
			st, err := open("/mock/abrupt", "openai")
			Expect(err).NotTo(HaveOccurred())

			_, err = st.Collect(context.Background())
			var cerr *llm.ConnectionError
			Expect(errors.As(err, &cerr)).To(BeTrue())
		})

		It("times out a stalled stream", func() {
			st, err := open("/mock/stall", "mock", stream.WithIdleTimeout(150*time.Millisecond))
			Expect(err).NotTo(HaveOccurred())

			resp, err := st.Collect(context.Background())
			Expect(err).To(MatchError(llm.ErrStreamTimeout))
			Expect(resp.Content).To(Equal("Hel"))
		})

		It("fails before streaming on an error status", func() {
			_, err := open("/mock/rate-limited", "openai")
			var perr *llm.ProviderError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.IsRateLimited()).To(BeTrue())
		})
	})
})

var _ = Describe("Watch", func() {
	It("reloads the scenarios file when it changes", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "scenarios.toml")
		Expect(os.WriteFile(path, []byte("[[scenario]]\nname = \"first\"\nformat = \"mock\"\n"), 0o600)).To(Succeed())

		s, err := New(Config{ScenariosPath: path, Watch: true}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = s.RunWithListener(listener) }()
		DeferCleanup(s.Close)

		_, err = s.Catalog().Get("first")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() error {
			if err := os.WriteFile(path, []byte("[[scenario]]\nname = \"second\"\nformat = \"ollama\"\n"), 0o600); err != nil {
				return err
			}
			_, err := s.Catalog().Get("second")
			return err
		}).WithTimeout(5 * time.Second).WithPolling(100 * time.Millisecond).Should(Succeed())

		_, err = s.Catalog().Get("first")
		Expect(err).To(MatchError(ErrUnknownScenario))
	})
})

func httptestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
