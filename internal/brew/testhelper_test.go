package brew

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// memPrefs is an in-memory Preferences used by tests.
type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
	sets   int
}

func newMemPrefs() *memPrefs {
	return &memPrefs{values: make(map[string]string)}
}

func (p *memPrefs) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *memPrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets++
	if p.setErr != nil {
		return p.setErr
	}
	p.values[key] = value
	return nil
}

// writeFakeBrew creates an executable file named brew under dir.
func writeFakeBrew(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "brew")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("failed to write fake brew: %v", err)
	}
	return path
}

var errNoBrew = errors.New("executable file not found in $PATH")

func noLookPath(string) (string, error) {
	return "", errNoBrew
}
