package updater

import "sync/atomic"

// Guard admits at most one brew operation at a time. A second caller is
// turned away rather than queued.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the guard if it is free and reports whether it did.
func (g *Guard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *Guard) Release() {
	g.held.Store(false)
}

// Held reports whether an operation is in flight.
func (g *Guard) Held() bool {
	return g.held.Load()
}
