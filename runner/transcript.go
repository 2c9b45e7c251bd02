package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OpenTranscript truncates or creates the transcript file at path,
// creating parent directories as needed.
func OpenTranscript(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("runner: transcript dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("runner: transcript: %w", err)
	}

	return f, nil
}

// LoadTranscript rebuilds the tree of the run recorded at path.
func LoadTranscript(path, dir string) (*ResultTree, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscript, path)
	}

	if err != nil {
		return nil, fmt.Errorf("runner: transcript: %w", err)
	}

	tree := NewResultTree(dir)
	tree.Parse(strings.Split(string(data), "\n"))

	return tree, nil
}
