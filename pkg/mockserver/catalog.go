package mockserver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Catalog holds the scenarios the server can play. It is safe for
// concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewCatalog returns a catalog holding the built-in scenarios.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.Replace(nil)
	return c
}

// Replace swaps the file-provided scenarios for extra. Built-ins stay
// available unless extra overrides them by name.
func (c *Catalog) Replace(extra []Scenario) {
	scenarios := make(map[string]Scenario)
	for _, s := range builtins() {
		if err := s.Validate(); err != nil {
			panic(err)
		}
		scenarios[s.Name] = s
	}
	for _, s := range extra {
		scenarios[s.Name] = s
	}

	c.mu.Lock()
	c.scenarios = scenarios
	c.mu.Unlock()
}

// Get returns a copy of the named scenario.
func (c *Catalog) Get(name string) (Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// Names returns every scenario name, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.scenarios))
	for name := range c.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads path and replaces the file-provided scenarios.
func (c *Catalog) Load(path string) error {
	scenarios, err := LoadScenarios(path)
	if err != nil {
		return err
	}
	c.Replace(scenarios)
	return nil
}

// Watch reloads path whenever it is written or replaced, until ctx is done.
// A file that fails to load leaves the previous scenarios in place. The
// directory is watched rather than the file so editors that save by rename
// are picked up.
func (c *Catalog) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating scenario watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching scenario dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.Load(path); err != nil {
				logger.Warn("keeping previous scenarios", "path", path, "error", err)
				continue
			}
			logger.Info("reloaded scenarios", "path", path, "count", len(c.Names()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("scenario watcher error: %w", err)
		}
	}
}
