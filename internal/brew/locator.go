package brew

import (
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// PrefBrewPath is the preference key holding the last known brew location.
const PrefBrewPath = "brew-path"

// DefaultSearchPaths are probed, in order, when no cached path is usable.
// Apple Silicon Homebrew installs to /opt/homebrew; Intel to /usr/local.
var DefaultSearchPaths = []string{
	"/opt/homebrew/bin/brew",
	"/usr/local/bin/brew",
	"/home/linuxbrew/.linuxbrew/bin/brew",
}

// Preferences is the persisted key-value store the core reads and writes.
// The storage mechanism belongs to the caller.
type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Locator finds the brew executable and remembers where it was found.
type Locator struct {
	prefs       Preferences
	searchPaths []string
	lookPath    func(file string) (string, error)
	logger      *zap.Logger

	mu   sync.Mutex
	path string
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithSearchPaths overrides the well-known install locations.
func WithSearchPaths(paths []string) LocatorOption {
	return func(l *Locator) {
		if len(paths) > 0 {
			l.searchPaths = append([]string(nil), paths...)
		}
	}
}

// WithLookPath overrides the PATH lookup (exec.LookPath by default).
func WithLookPath(fn func(file string) (string, error)) LocatorOption {
	return func(l *Locator) {
		l.lookPath = fn
	}
}

// WithLocatorLogger sets the logger used for cache write failures.
func WithLocatorLogger(logger *zap.Logger) LocatorOption {
	return func(l *Locator) {
		l.logger = logger
	}
}

// NewLocator creates a Locator. prefs may be nil, in which case nothing is
// cached across restarts.
func NewLocator(prefs Preferences, opts ...LocatorOption) *Locator {
	l := &Locator{
		prefs:       prefs,
		searchPaths: DefaultSearchPaths,
		lookPath:    exec.LookPath,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate resolves the brew path: cached preference, then well-known paths,
// then a PATH lookup. The second return value is false when brew cannot be
// found; that is not an error here, the Runner reports it as NotFound.
func (l *Locator) Locate() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locateLocked()
}

// Path returns the remembered path if it still exists on disk and locates
// again otherwise.
func (l *Locator) Path() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path != "" && fileExists(l.path) {
		return l.path, true
	}
	return l.locateLocked()
}

func (l *Locator) locateLocked() (string, bool) {
	l.path = ""

	if l.prefs != nil {
		if cached, ok := l.prefs.Get(PrefBrewPath); ok && cached != "" && fileExists(cached) {
			l.path = cached
			return cached, true
		}
	}

	for _, candidate := range l.searchPaths {
		if fileExists(candidate) {
			l.remember(candidate)
			return candidate, true
		}
	}

	if l.lookPath != nil {
		if found, err := l.lookPath("brew"); err == nil {
			found = strings.TrimSpace(found)
			if found != "" {
				l.remember(found)
				return found, true
			}
		}
	}

	return "", false
}

// remember must be called with the lock held.
func (l *Locator) remember(path string) {
	l.path = path
	if l.prefs == nil {
		return
	}
	if err := l.prefs.Set(PrefBrewPath, path); err != nil {
		l.logger.Warn("failed to cache brew path", zap.String("path", path), zap.Error(err))
	}
}

// fileExists reports whether path names an existing non-directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
