// Package credentials stores provider API keys in the .llmstream/ directory
// and turns them into request headers.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/llmstream/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerAuth describes how a provider expects its API key.
type providerAuth struct {
	envVar string
	header string
	bearer bool
	extra  map[string]string
}

var providerAuths = map[string]providerAuth{
	"openai":     {envVar: "OPENAI_API_KEY", header: "Authorization", bearer: true},
	"groq":       {envVar: "GROQ_API_KEY", header: "Authorization", bearer: true},
	"mistral":    {envVar: "MISTRAL_API_KEY", header: "Authorization", bearer: true},
	"perplexity": {envVar: "PERPLEXITY_API_KEY", header: "Authorization", bearer: true},
	"openrouter": {envVar: "OPENROUTER_API_KEY", header: "Authorization", bearer: true},
	"anthropic": {
		envVar: "ANTHROPIC_API_KEY",
		header: "X-Api-Key",
		extra:  map[string]string{"Anthropic-Version": "2023-06-01"},
	},
	"gemini": {envVar: "GEMINI_API_KEY", header: "X-Goog-Api-Key"},
}

// Manager manages reading and writing credentials.toml in the .llmstream/
// directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .llmstream/ directory; otherwise the standard dotdir resolution
// applies. When no .llmstream/ directory is found, Save creates ~/.llmstream/.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{ddm: dotdir.NewManager()}

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}
	if target != "" {
		mgr.targetPath = filepath.Join(target, credentialsFile)
	}

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	empty := &Credentials{
		Version:   currentVersion,
		Providers: make(map[string]ProviderCredential),
	}
	if m.targetPath == "" {
		return empty, nil
	}

	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	if m.targetPath == "" {
		dir, err := m.ddm.Ensure("")
		if err != nil {
			return err
		}
		m.targetPath = filepath.Join(dir, credentialsFile)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given provider.
func (m *Manager) SetKey(provider, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderCredential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given provider.
// Returns an empty string if no key is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Providers[provider].APIKey, nil
}

// ResolveKey returns the stored key for provider, falling back to the
// provider's environment variable.
func (m *Manager) ResolveKey(provider string) (string, error) {
	key, err := m.GetKey(provider)
	if err != nil || key != "" {
		return key, err
	}
	if env := EnvVarForProvider(provider); env != "" {
		return os.Getenv(env), nil
	}
	return "", nil
}

// RemoveKey deletes the stored credential for a provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of providers that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// GetTarget returns the resolved path to the credentials file. It is empty
// until the first Save when no .llmstream/ directory resolved.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// ApplyAuth sets the provider's authentication headers on h unless the
// caller already supplied the auth header. It reports whether it set them.
func ApplyAuth(h http.Header, provider, key string) bool {
	auth, ok := providerAuths[provider]
	if !ok || key == "" || h.Get(auth.header) != "" {
		return false
	}

	if auth.bearer {
		h.Set(auth.header, "Bearer "+key)
	} else {
		h.Set(auth.header, key)
	}
	for k, v := range auth.extra {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	return true
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerAuths[provider].envVar
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	names := make([]string, 0, len(providerAuths))
	for name := range providerAuths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	_, ok := providerAuths[provider]
	return ok
}
