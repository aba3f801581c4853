// Package llmstreamcmder
package llmstreamcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/llmstream/cmd/llmstream/auth"
	configcmder "github.com/papercomputeco/llmstream/cmd/llmstream/config"
	initcmder "github.com/papercomputeco/llmstream/cmd/llmstream/init"
	mockcmder "github.com/papercomputeco/llmstream/cmd/llmstream/mock"
	replaycmder "github.com/papercomputeco/llmstream/cmd/llmstream/replay"
	streamcmder "github.com/papercomputeco/llmstream/cmd/llmstream/stream"
	versioncmder "github.com/papercomputeco/llmstream/cmd/version"
)

const llmstreamLongDesc string = `llmstream normalizes streaming responses from LLM providers.

OpenAI, Anthropic, Gemini, Ollama, Bedrock and compatible APIs each stream
in their own wire format. llmstream decodes them all into one chunk shape,
with idle timeouts, in-band error detection and partial results.

Commands:
  llmstream stream     Stream a model response
  llmstream replay     Decode a recorded transcript
  llmstream mock       Run a local mock LLM backend
  llmstream auth       Store provider API keys
  llmstream config     Manage persistent configuration
  llmstream init       Initialize a local .llmstream/ directory`

const llmstreamShortDesc string = "llmstream - LLM stream normalization"

func NewLLMStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "llmstream",
		Short:        llmstreamShortDesc,
		Long:         llmstreamLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .llmstream/ directory")

	// Add subcommands
	cmd.AddCommand(streamcmder.NewStreamCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(mockcmder.NewMockCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
