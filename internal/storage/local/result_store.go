// Package local archives finished crawl results on the local filesystem.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

// Config captures the parameters for the local result store.
type Config struct {
	// BaseDir is the root directory where results are written.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ResultStore writes one JSON document per run.
type ResultStore struct {
	baseDir string
}

// New creates the base directory if needed and checks that it is writable.
func New(cfg Config) (*ResultStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &ResultStore{baseDir: cfg.BaseDir}, nil
}

// Save writes result to <run_id>.json and returns a file:// URI.
func (s *ResultStore) Save(ctx context.Context, result crawler.Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save result: %w", err)
	}
	name := strings.TrimSpace(result.RunID)
	if name == "" {
		return "", fmt.Errorf("run id is required")
	}

	fullPath := filepath.Join(s.baseDir, name+".json")
	// Reject run ids that would escape baseDir.
	if filepath.Dir(filepath.Clean(fullPath)) != filepath.Clean(s.baseDir) {
		return "", fmt.Errorf("path traversal detected")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	// Write to a temp file first so readers never observe a partial document.
	tmp, err := os.CreateTemp(s.baseDir, ".result-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return fmt.Sprintf("file://%s", fullPath), nil
}
