package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gh-download/ghpipe/pkg/logger"
)

var outputLog = logger.New("workflow:output")

// WriteFiles writes files into dir, creating it if needed. Files whose
// content is unchanged are not rewritten. It returns the names written.
func WriteFiles(dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		current, err := os.ReadFile(path)
		if err == nil && bytes.Equal(current, f.Content) {
			outputLog.Printf("Unchanged: %s", path)
			continue
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		outputLog.Printf("Wrote %s", path)
		written = append(written, f.Name)
	}
	return written, nil
}

// Check compares files with their checked-in copies in dir and returns the
// names that are missing or differ.
func Check(dir string, files []File) ([]string, error) {
	var stale []string
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		current, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				stale = append(stale, f.Name)
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !bytes.Equal(current, f.Content) {
			stale = append(stale, f.Name)
		}
	}
	outputLog.Printf("Checked %d file(s), %d stale", len(files), len(stale))
	return stale, nil
}
