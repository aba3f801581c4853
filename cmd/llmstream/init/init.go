// Package initcmder provides the init command for initializing a local
// .llmstream directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmstream/pkg/config"
)

const (
	dirName = ".llmstream"

	// maxRemoteConfig bounds the size of a config fetched with --preset URL.
	maxRemoteConfig = 1 << 20
)

const initLongDesc string = `Initialize a new .llmstream/ directory in the current working directory.

Creates a local .llmstream/ directory that takes precedence over the default
~/.llmstream/ directory for configuration, recordings and mock scenarios.

With --preset, a config.toml is written as well. The preset is either the
name of a built-in provider preset, which points client.provider and
client.url at that provider, or an http(s) URL of a shared config.toml.
Re-running init with a preset overwrites the existing config.toml.

Examples:
  llmstream init
  llmstream init --preset anthropic
  llmstream init --preset mock
  llmstream init --preset https://example.com/team/llmstream.toml`

const initShortDesc string = "Initialize a local .llmstream/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	// Resolve the preset before touching the filesystem so a bad preset
	// leaves nothing behind.
	var cfg *config.Config
	if c.preset != "" {
		cfg, err = c.resolvePreset(ctx)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .llmstream directory: %w", err)
		}
		fmt.Fprintf(c.out, "Initialized .llmstream directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Wrote %s\n", cfger.GetTarget())
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
