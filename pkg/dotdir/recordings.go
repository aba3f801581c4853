package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	recordingsDir = "recordings"

	// RecordingExt is appended to bare recording names.
	RecordingExt = ".wire"
)

// RecordingPath returns where a recording should be written. A name with a
// path separator or extension is used as-is; a bare name is placed in the
// recordings/ directory under the resolved .llmstream/ directory.
func (m *Manager) RecordingPath(name, overrideDir string) (string, error) {
	if name == "" {
		return "", errors.New("empty recording name")
	}
	if strings.ContainsRune(name, os.PathSeparator) || filepath.Ext(name) != "" {
		return name, nil
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return "", err
	}

	dir = filepath.Join(dir, recordingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recordings directory: %w", err)
	}
	return filepath.Join(dir, name+RecordingExt), nil
}

// FindRecording resolves a recording for replay: an existing file path wins,
// then a bare name in the recordings/ directory.
func (m *Manager) FindRecording(name, overrideDir string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	if dir != "" {
		path := filepath.Join(dir, recordingsDir, name+RecordingExt)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("recording %q: %w", name, os.ErrNotExist)
}

// ListRecordings returns the bare names of recordings in the resolved
// directory, sorted.
func (m *Manager) ListRecordings(overrideDir string) ([]string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(dir, recordingsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recordings: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != RecordingExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), RecordingExt))
	}
	sort.Strings(names)
	return names, nil
}
