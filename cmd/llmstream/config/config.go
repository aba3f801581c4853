// Package configcmder provides the config command for managing persistent
// llmstream configuration stored in the .llmstream/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent llmstream configuration.

Configuration is stored as config.toml in the .llmstream/ directory and
provides default values for command flags. CLI flags and LLMSTREAM_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  stream.idle_timeout, stream.poll_interval, stream.buffer_size,
  client.provider, client.url,
  events.enabled, events.brokers, events.topic,
  mock.listen, mock.scenarios, mock.watch,
  log.json, log.pretty, log.debug

Use subcommands to get, set, or list configuration values:
  llmstream config set <key> <value>    Set a configuration value
  llmstream config get <key>            Get a configuration value
  llmstream config list                 List all configuration values

Examples:
  llmstream config set client.provider anthropic
  llmstream config set stream.idle_timeout 2m
  llmstream config get client.url
  llmstream config list`

const configShortDesc string = "Manage persistent llmstream configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
