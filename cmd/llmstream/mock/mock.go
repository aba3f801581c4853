// Package mockcmder provides the mock command, which runs the local mock LLM
// backend and lists its scenarios.
package mockcmder

import (
	"github.com/spf13/cobra"
)

const mockLongDesc string = `Run a local mock LLM backend.

The mock backend streams canned token scripts in any supported wire format,
with injectable delays, malformed frames, stalls, in-band errors and dropped
connections. Point "llmstream stream" or your own client at it to exercise
failure handling without a real provider.

Routes:
  POST /mock/<scenario>          play a scenario in its own format
  POST /v1/chat/completions      OpenAI shaped
  POST /v1/messages              Anthropic shaped
  POST /v1beta/models/...        Gemini shaped
  POST /api/chat, /api/generate  Ollama shaped
  POST /model/...                Bedrock shaped
  GET  /mock/scenarios           list scenarios

Provider-shaped routes pick the scenario from ?scenario= or the
X-Mock-Scenario header.

Examples:
  llmstream mock serve
  llmstream mock serve --scenarios ./scenarios.toml --watch
  llmstream mock list`

const mockShortDesc string = "Run a local mock LLM backend"

func NewMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: mockShortDesc,
		Long:  mockLongDesc,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
