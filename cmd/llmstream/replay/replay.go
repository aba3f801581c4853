// Package replaycmder provides the replay command, which decodes a recorded
// wire transcript offline.
package replaycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmstream/pkg/cliui"
	"github.com/papercomputeco/llmstream/pkg/dotdir"
	"github.com/papercomputeco/llmstream/pkg/llm"
	"github.com/papercomputeco/llmstream/pkg/llm/provider"
	"github.com/papercomputeco/llmstream/pkg/stream"
)

type replayCommander struct {
	provider  string
	chunks    bool
	list      bool
	configDir string

	stdout io.Writer
	stderr io.Writer
}

const replayLongDesc string = `Decode a recorded wire transcript without a network connection.

The transcript is the raw response body, as written by "llmstream stream
--record". It is run through the same framing and decoder as a live stream,
so malformed frames are dropped and in-band errors surface the same way.

A bare name is looked up in .llmstream/recordings/.

Examples:
  llmstream replay --provider openai capture.sse
  llmstream replay -p mock slow --chunks
  llmstream replay --list`

const replayShortDesc string = "Decode a recorded transcript"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.stdout = cmd.OutOrStdout()
			cmder.stderr = cmd.ErrOrStderr()

			if cmder.list {
				return cmder.runList()
			}
			if len(args) != 1 {
				return fmt.Errorf("a transcript file or recording name is required")
			}
			return cmder.run(cmd.Context(), args[0])
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			names, _ := dotdir.NewManager().ListRecordings(configDir)
			return names, cobra.ShellCompDirectiveDefault
		},
	}

	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", provider.BestEffort,
		fmt.Sprintf("Decoder to use (%v)", provider.SupportedProviders()))
	cmd.Flags().BoolVar(&cmder.chunks, "chunks", false, "Print each chunk as a JSON line instead of the text")
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List recordings in .llmstream/recordings/")

	return cmd
}

func (c *replayCommander) run(ctx context.Context, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	path, err := dotdir.NewManager().FindRecording(name, c.configDir)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	start := time.Now()
	st, err := stream.OpenReader(ctx, c.provider, f, stream.WithIdleTimeout(0))
	if err != nil {
		return err
	}
	defer st.Close()

	enc := json.NewEncoder(c.stdout)
	var acc llm.Accumulator
	for chunk, err := range st.Chunks(ctx) {
		if err != nil {
			fmt.Fprintln(c.stderr, cliui.Summary(acc.Response(), time.Since(start)))
			return err
		}
		acc.Add(chunk)

		if c.chunks {
			if err := enc.Encode(chunk); err != nil {
				return err
			}
			continue
		}
		fmt.Fprint(c.stdout, chunk.Content)
	}

	if !c.chunks {
		fmt.Fprintln(c.stdout)
	}
	fmt.Fprintln(c.stderr, cliui.Summary(acc.Response(), time.Since(start)))
	return nil
}

func (c *replayCommander) runList() error {
	names, err := dotdir.NewManager().ListRecordings(c.configDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(c.stderr, cliui.StepStyle.Render("No recordings found."))
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(c.stdout, name)
	}
	return nil
}
