package watcher

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/blackwell-systems/brewster/internal/store"
)

// setupTestStore creates an in-memory SQLite store for tests and registers
// cleanup with t.Cleanup so callers don't need explicit defer.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		t.Fatalf("setupTestStore: schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// scriptedRefresher returns results in order, repeating the last one.
type scriptedRefresher struct {
	mu      sync.Mutex
	results []refreshResult
	calls   int
}

type refreshResult struct {
	updates []brew.PackageUpdate
	err     error
}

func (r *scriptedRefresher) CheckForUpdates(context.Context, bool) ([]brew.PackageUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.results) == 0 {
		return nil, nil
	}
	i := r.calls - 1
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i].updates, r.results[i].err
}

func (r *scriptedRefresher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// idleTicker never fires.
type idleTicker struct{ ch chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.ch }
func (t idleTicker) Stop()               {}

func idleTickers(time.Duration) schedule.Ticker {
	return idleTicker{ch: make(chan time.Time)}
}

func pkg(name, current string) brew.PackageUpdate {
	return brew.PackageUpdate{
		Name:              name,
		InstalledVersions: []string{"1.0"},
		CurrentVersion:    current,
		Kind:              brew.KindFormula,
	}
}
