package streamcmder

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmstream/pkg/config"
	"github.com/papercomputeco/llmstream/pkg/logger"
)

var _ = Describe("parseHeaders", func() {
	It("accepts key=value and key: value", func() {
		header, err := parseHeaders([]string{
			"Authorization=Bearer abc=",
			"anthropic-version: 2023-06-01",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(header.Get("Authorization")).To(Equal("Bearer abc="))
		Expect(header.Get("Anthropic-Version")).To(Equal("2023-06-01"))
	})

	It("keeps repeated headers", func() {
		header, err := parseHeaders([]string{"X-A=1", "X-A=2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(header.Values("X-A")).To(Equal([]string{"1", "2"}))
	})

	It("rejects headers without a separator or name", func() {
		_, err := parseHeaders([]string{"nope"})
		Expect(err).To(HaveOccurred())
		_, err = parseHeaders([]string{"=value"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("readBody", func() {
	It("reads a literal body", func() {
		c := &streamCommander{body: `{"a":1}`}
		Expect(c.readBody()).To(Equal([]byte(`{"a":1}`)))
	})

	It("reads a body from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "req.json")
		Expect(os.WriteFile(path, []byte(`{"b":2}`), 0o644)).To(Succeed())

		c := &streamCommander{body: "@" + path}
		Expect(c.readBody()).To(Equal([]byte(`{"b":2}`)))
	})

	It("reads a body from stdin", func() {
		c := &streamCommander{body: "-", stdin: strings.NewReader(`{"c":3}`)}
		Expect(c.readBody()).To(Equal([]byte(`{"c":3}`)))
	})

	It("requires a body", func() {
		_, err := (&streamCommander{}).readBody()
		Expect(err).To(MatchError(ContainSubstring("--body")))
	})
})

var _ = Describe("request", func() {
	It("leaves the provider empty for detection by default", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		c := &streamCommander{viper: v, body: "{}", method: "POST"}
		req, err := c.request()
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Provider).To(BeEmpty())
		Expect(req.URL).To(Equal("http://localhost:11434/api/chat"))
	})

	It("adds the detected provider's key from the environment", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-env")
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		v.Set("client.url", "https://api.openai.com/v1/chat/completions")

		c := &streamCommander{viper: v, body: "{}", configDir: GinkgoT().TempDir(), logger: logger.Nop()}
		req, err := c.request()
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Header.Get("Authorization")).To(Equal("Bearer sk-env"))
	})

	It("keeps an explicit auth header", func() {
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-env")
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		v.Set("client.provider", "anthropic")

		c := &streamCommander{
			viper:     v,
			body:      "{}",
			headers:   []string{"x-api-key: mine"},
			configDir: GinkgoT().TempDir(),
			logger:    logger.Nop(),
		}
		req, err := c.request()
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Header.Get("X-Api-Key")).To(Equal("mine"))
	})

	It("requires a URL", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		v.Set("client.url", "")

		c := &streamCommander{viper: v, body: "{}"}
		_, err = c.request()
		Expect(err).To(MatchError(ContainSubstring("URL")))
	})
})
