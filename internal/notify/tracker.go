// Package notify decides which outdated packages are new since the last
// successful check.
package notify

import (
	"sync"

	"github.com/blackwell-systems/brewster/internal/brew"
)

// PrefNotificationsEnabled toggles new-update notifications.
const PrefNotificationsEnabled = "notifications-enabled"

// Tracker remembers the packages reported by the previous check.
type Tracker struct {
	mu       sync.Mutex
	previous map[string]struct{}
	primed   bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{previous: make(map[string]struct{})}
}

// key distinguishes a formula from a cask of the same name, and a package
// that moved to a newer target version from the one already reported.
func key(u brew.PackageUpdate) string {
	return u.Kind.String() + "/" + u.Name + "@" + u.CurrentVersion
}

// Observe returns the updates absent from the previous observation and
// then replaces it. The result keeps the input order.
func (t *Tracker) Observe(updates []brew.PackageUpdate) []brew.PackageUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string]struct{}, len(updates))
	var fresh []brew.PackageUpdate
	for _, u := range updates {
		k := key(u)
		if _, seen := next[k]; seen {
			continue
		}
		next[k] = struct{}{}
		if _, known := t.previous[k]; !known {
			fresh = append(fresh, u)
		}
	}

	t.previous = next
	t.primed = true
	return fresh
}

// Primed reports whether Observe has been called at least once.
func (t *Tracker) Primed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primed
}

// Reset forgets the previous observation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previous = make(map[string]struct{})
	t.primed = false
}
