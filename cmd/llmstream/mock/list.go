package mockcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmstream/pkg/cliui"
	"github.com/papercomputeco/llmstream/pkg/config"
	"github.com/papercomputeco/llmstream/pkg/mockserver"
	"github.com/papercomputeco/llmstream/pkg/utils"
)

const listLongDesc string = `List the scenarios the mock backend can play.

Includes the built-in scenarios and those from --scenarios or
mock.scenarios, which override built-ins of the same name.

Examples:
  llmstream mock list
  llmstream mock list --scenarios ./scenarios.toml`

const listShortDesc string = "List mock scenarios"

func newListCmd() *cobra.Command {
	var scenarios string

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, []string{config.FlagScenarios})

			return runList(cmd.OutOrStdout(), v.GetString("mock.scenarios"))
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagScenarios, &scenarios)

	return cmd
}

// maxTokensPreview bounds the token preview column.
const maxTokensPreview = 40

func runList(w io.Writer, path string) error {
	catalog := mockserver.NewCatalog()
	if path != "" {
		if err := catalog.Load(path); err != nil {
			return err
		}
	}

	names := catalog.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	for _, name := range names {
		sc, err := catalog.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-*s  %s  %s\n",
			width, name,
			cliui.KeyStyle.Render(fmt.Sprintf("%-9s", sc.Format)),
			cliui.DimStyle.Render(utils.Truncate(strings.Join(sc.Tokens, ""), maxTokensPreview)),
		)
	}
	return nil
}
