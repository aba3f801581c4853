// Package dotdir manages the .llmstream/ and ~/.llmstream directories that
// hold config.toml and recorded wire transcripts.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the llmstream directory.
	dirName = ".llmstream"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .llmstream/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.llmstream/ dir
//  3. Home ~/.llmstream/ dir
//
// If none is found, Target returns an empty string.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating llmstream directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if dir := filepath.Join(cwd, dirName); isDir(dir) {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if dir := filepath.Join(home, dirName); isDir(dir) {
		return dir, nil
	}

	return "", nil
}

// Ensure is like Target but creates ~/.llmstream/ when no directory resolves.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating llmstream directory %s: %w", dir, err)
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
