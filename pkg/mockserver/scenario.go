package mockserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BurntSushi/toml"
)

// Format is the wire format a scenario is rendered in.
type Format string

const (
	FormatOpenAI    Format = "openai"
	FormatAnthropic Format = "anthropic"
	FormatGemini    Format = "gemini"
	FormatOllama    Format = "ollama"
	FormatBedrock   Format = "bedrock"
	FormatMock      Format = "mock"
)

var (
	// ErrUnknownScenario is returned when a requested scenario does not exist.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrInvalidScenario wraps scenario validation failures.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario is a canned streaming response. Positions (the *_at fields) count
// tokens already written: 0 acts before the first token, len(tokens) after
// the last token and before the finish frames.
type Scenario struct {
	Name   string   `toml:"name" json:"name"`
	Format Format   `toml:"format" json:"format"`
	Model  string   `toml:"model,omitempty" json:"model,omitempty"`
	Tokens []string `toml:"tokens" json:"tokens"`

	// Finish overrides the format's usual finish reason.
	Finish string `toml:"finish,omitempty" json:"finish,omitempty"`

	// Delay is slept before every token, in Go duration syntax.
	Delay string `toml:"delay,omitempty" json:"delay,omitempty"`

	// Status answers with this HTTP error status and no stream when >= 400.
	Status       int    `toml:"status,omitempty" json:"status,omitempty"`
	ErrorType    string `toml:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorMessage string `toml:"error_message,omitempty" json:"error_message,omitempty"`

	// MalformedAt injects one frame that is not valid JSON.
	MalformedAt *int `toml:"malformed_at,omitempty" json:"malformed_at,omitempty"`

	// ErrorAt emits the format's in-band error frame and ends the stream.
	ErrorAt *int `toml:"error_at,omitempty" json:"error_at,omitempty"`

	// StallAt stops writing for StallFor, or until shutdown when StallFor
	// is empty.
	StallAt  *int   `toml:"stall_at,omitempty" json:"stall_at,omitempty"`
	StallFor string `toml:"stall_for,omitempty" json:"stall_for,omitempty"`

	// CloseAt drops the connection without terminating the response.
	CloseAt *int `toml:"close_at,omitempty" json:"close_at,omitempty"`

	delay    time.Duration
	stallFor time.Duration
}

// Validate checks the scenario and parses its durations.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	if _, ok := encoders[s.Format]; !ok {
		return fmt.Errorf("%w: %s: unknown format %q", ErrInvalidScenario, s.Name, s.Format)
	}
	if s.Status != 0 && (s.Status < http.StatusBadRequest || s.Status > 599) {
		return fmt.Errorf("%w: %s: status %d is not an error status", ErrInvalidScenario, s.Name, s.Status)
	}

	var err error
	if s.delay, err = parseDuration(s.Delay); err != nil {
		return fmt.Errorf("%w: %s: delay: %v", ErrInvalidScenario, s.Name, err)
	}
	if s.stallFor, err = parseDuration(s.StallFor); err != nil {
		return fmt.Errorf("%w: %s: stall_for: %v", ErrInvalidScenario, s.Name, err)
	}

	for _, at := range []*int{s.MalformedAt, s.ErrorAt, s.StallAt, s.CloseAt} {
		if at != nil && *at < 0 {
			return fmt.Errorf("%w: %s: negative position", ErrInvalidScenario, s.Name)
		}
	}
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("negative duration")
	}
	return d, nil
}

// at reports whether the optional position p equals n.
func at(p *int, n int) bool {
	return p != nil && *p == n
}

// clamp folds positions past the last token onto len(tokens).
func (s *Scenario) clamp(p *int) *int {
	if p == nil || *p <= len(s.Tokens) {
		return p
	}
	n := len(s.Tokens)
	return &n
}

// model returns the configured model or a per-format default.
func (s *Scenario) model() string {
	if s.Model != "" {
		return s.Model
	}
	return "mock-" + string(s.Format)
}

func (s *Scenario) errorMessage() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	if s.Status != 0 {
		return http.StatusText(s.Status)
	}
	return "mock upstream error"
}

// scenarioFile is the TOML layout of a scenarios file.
type scenarioFile struct {
	Scenarios []Scenario `toml:"scenario"`
}

// LoadScenarios reads [[scenario]] tables from a TOML file.
func LoadScenarios(path string) ([]Scenario, error) {
	var file scenarioFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("reading scenarios %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Scenarios))
	for i := range file.Scenarios {
		s := &file.Scenarios[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = true
	}
	return file.Scenarios, nil
}

func intp(n int) *int { return &n }

// builtins are always available, and scenario files may override them by name.
func builtins() []Scenario {
	hello := []string{"Hel", "lo", ", ", "world", "!"}
	return []Scenario{
		{Name: "openai", Format: FormatOpenAI, Model: "gpt-4o-mini", Tokens: hello},
		{Name: "anthropic", Format: FormatAnthropic, Model: "claude-sonnet-4-5", Tokens: hello},
		{Name: "gemini", Format: FormatGemini, Model: "gemini-2.5-flash", Tokens: hello},
		{Name: "ollama", Format: FormatOllama, Model: "llama3.2", Tokens: hello},
		{Name: "bedrock", Format: FormatBedrock, Model: "anthropic.claude-3-haiku", Tokens: hello},
		{Name: "mock", Format: FormatMock, Tokens: hello},
		{Name: "slow", Format: FormatOpenAI, Tokens: hello, Delay: "250ms"},
		{Name: "malformed", Format: FormatOpenAI, Tokens: []string{"Hel", "lo"}, MalformedAt: intp(1)},
		{Name: "stall", Format: FormatMock, Tokens: hello, StallAt: intp(1)},
		{Name: "abrupt", Format: FormatOpenAI, Tokens: hello, CloseAt: intp(2)},
		{Name: "overloaded", Format: FormatAnthropic, Tokens: hello, ErrorAt: intp(2),
			ErrorType: "overloaded_error", ErrorMessage: "Overloaded"},
		{Name: "rate-limited", Format: FormatOpenAI, Status: http.StatusTooManyRequests,
			ErrorType: "rate_limit_error", ErrorMessage: "Rate limit reached"},
	}
}
