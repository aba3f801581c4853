// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/llmstream/pkg/cliui"
	"github.com/papercomputeco/llmstream/pkg/credentials"
)

const authLongDesc string = `Store API credentials for LLM providers.

Credentials are stored in credentials.toml in the .llmstream/ directory.
"llmstream stream" adds the provider's auth header from them when the
request does not carry one, falling back to the provider's usual
environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).

Examples:
  llmstream auth openai              Prompt for an OpenAI API key
  llmstream auth anthropic           Prompt for an Anthropic API key
  llmstream auth --list              List stored credentials
  llmstream auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | llmstream auth gemini  Pipe an API key from stdin`

const authShortDesc string = "Store API credentials for LLM providers"

type authCommander struct {
	configDir string
	stdin     io.Reader
	out       io.Writer
}

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
			cmder.stdin = cmd.InOrStdin()

			switch {
			case listFlag:
				return cmder.runList()
			case removeFlag != "":
				return cmder.runRemove(removeFlag)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.runAuth(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func (c *authCommander) runAuth(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(provider),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func (c *authCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'llmstream auth <provider>' to store credentials.\n")
		fmt.Fprintf(c.out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.LabelStyle.Render("Stored credentials"))
	for _, p := range providers {
		envVar := credentials.EnvVarForProvider(p)
		if envVar != "" {
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(p),
				cliui.DimStyle.Render("overrides "+envVar),
			)
		} else {
			fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(p))
		}
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(provider))

	return nil
}

// readAPIKey reads an API key from stdin. Piped input supplies the first
// line; a terminal is prompted with hidden input.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(c.stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
