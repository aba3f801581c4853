package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/llmstream/cmd/llmstream/auth"
	"github.com/papercomputeco/llmstream/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	execute := func(stdin string, args ...string) error {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override the .llmstream/ directory")
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with the list and remove flags", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	It("stores a piped key", func() {
		Expect(execute("sk-piped\n", "openai")).To(Succeed())

		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.GetKey("openai")).To(Equal("sk-piped"))
	})

	It("lists and removes stored keys", func() {
		Expect(execute("sk-ant\n", "Anthropic")).To(Succeed())

		out.Reset()
		Expect(execute("", "--list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("anthropic"))
		Expect(out.String()).To(ContainSubstring("ANTHROPIC_API_KEY"))

		Expect(execute("", "--remove", "anthropic")).To(Succeed())

		out.Reset()
		Expect(execute("", "--list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No stored credentials"))
	})

	It("rejects unsupported providers", func() {
		err := execute("key\n", "ollama")
		Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
	})

	It("rejects an empty key", func() {
		Expect(execute("   \n", "openai")).To(MatchError(ContainSubstring("cannot be empty")))
	})

	It("requires a provider", func() {
		Expect(execute("")).To(MatchError(ContainSubstring("provider argument required")))
	})
})
