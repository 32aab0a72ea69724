// Package scratch tracks the temporary artifacts of one pipeline run.
package scratch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Dir is a temporary directory whose artifacts are removed by Cleanup.
type Dir struct {
	mu        sync.Mutex
	root      string
	artifacts []string
	cleaned   bool
}

// New creates a temporary directory in dir, or in the default temporary
// directory when dir is empty.
func New(dir, pattern string) (*Dir, error) {
	root, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create scratch directory")
	}
	return &Dir{root: root}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path registers the artifact name and returns its path.
func (d *Dir) Path(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := filepath.Join(d.root, name)
	d.artifacts = append(d.artifacts, p)
	return p
}

// Cleanup removes every registered artifact and the directory. Errors are
// ignored and subsequent calls do nothing.
func (d *Dir) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cleaned {
		return
	}
	d.cleaned = true
	for i := len(d.artifacts) - 1; i >= 0; i-- {
		_ = os.RemoveAll(d.artifacts[i])
	}
	_ = os.RemoveAll(d.root)
}
