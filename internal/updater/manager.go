// Package updater runs brew checks and upgrades, one at a time.
package updater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when another brew operation is already running.
	ErrBusy = errors.New("another brew operation is already in progress")

	// ErrNoPackage is returned by UpgradePackage for a blank name.
	ErrNoPackage = errors.New("package name is required")
)

// Operation names written to the history.
const (
	OpCheck      = "check"
	OpOutdated   = "outdated"
	OpUpgrade    = "upgrade"
	OpUpgradeAll = "upgrade-all"
)

var (
	argsOutdatedJSON = []string{"outdated", "--json"}
	argsOutdated     = []string{"outdated"}
	argsUpdate       = []string{"update"}
	argsUpgradeAll   = []string{"upgrade"}
)

// BinaryLocator resolves the brew executable.
type BinaryLocator interface {
	Path() (string, bool)
}

// CommandRunner executes a command with a deadline.
type CommandRunner interface {
	Run(ctx context.Context, path string, args []string, timeout time.Duration) (string, error)
}

// Record describes one finished operation.
type Record struct {
	Op         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Recorder receives a Record after every operation that ran.
type Recorder interface {
	Record(rec Record)
}

// Timeouts bounds each kind of brew invocation.
type Timeouts struct {
	Query   time.Duration
	Refresh time.Duration
	Upgrade time.Duration
}

// DefaultTimeouts returns the runner's recommended budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Query:   brew.QueryTimeout,
		Refresh: brew.RefreshTimeout,
		Upgrade: brew.UpgradeTimeout,
	}
}

// Manager orchestrates brew invocations behind a single-flight guard.
type Manager struct {
	locator  BinaryLocator
	runner   CommandRunner
	guard    *Guard
	timeouts Timeouts
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeouts overrides the invocation budgets.
func WithTimeouts(t Timeouts) Option {
	return func(m *Manager) { m.timeouts = t }
}

// WithRecorder attaches an operation history sink.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithGuard shares a guard between managers.
func WithGuard(g *Guard) Option {
	return func(m *Manager) { m.guard = g }
}

// NewManager creates a Manager and resolves the brew path once up front.
func NewManager(locator BinaryLocator, runner CommandRunner, opts ...Option) *Manager {
	m := &Manager{
		locator:  locator,
		runner:   runner,
		guard:    &Guard{},
		timeouts: DefaultTimeouts(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if path, ok := m.locator.Path(); ok {
		m.logger.Debug("brew located", zap.String("path", path))
	} else {
		m.logger.Warn("brew not found; checks will fail until it is installed")
	}
	return m
}

// Busy reports whether an operation is in flight.
func (m *Manager) Busy() bool {
	return m.guard.Held()
}

// CheckForUpdates lists outdated packages. With runUpdateFirst it refreshes
// brew's metadata first; a failed refresh is logged and the check goes on.
func (m *Manager) CheckForUpdates(ctx context.Context, runUpdateFirst bool) ([]brew.PackageUpdate, error) {
	if !m.guard.TryAcquire() {
		return nil, ErrBusy
	}
	defer m.guard.Release()

	started := time.Now()
	updates, err := m.checkLocked(ctx, runUpdateFirst)
	m.record(OpCheck, "", started, err)
	return updates, err
}

func (m *Manager) checkLocked(ctx context.Context, runUpdateFirst bool) ([]brew.PackageUpdate, error) {
	path, _ := m.locator.Path()

	if runUpdateFirst {
		if _, err := m.runner.Run(ctx, path, argsUpdate, m.timeouts.Refresh); err != nil {
			m.logger.Warn("brew update failed, checking with existing metadata",
				zap.String("detail", brew.Describe(err)))
		}
	}

	raw, err := m.runner.Run(ctx, path, argsOutdatedJSON, m.timeouts.Query)
	if err != nil {
		return nil, err
	}

	updates, err := brew.ParseOutdated(raw)
	if err != nil {
		m.logger.Debug("unparseable outdated report", zap.Error(err))
		return nil, err
	}

	m.logger.Info("update check complete", zap.Int("outdated", len(updates)))
	return updates, nil
}

// Outdated returns brew's plain-text outdated listing.
func (m *Manager) Outdated(ctx context.Context) (string, error) {
	if !m.guard.TryAcquire() {
		return "", ErrBusy
	}
	defer m.guard.Release()

	started := time.Now()
	path, _ := m.locator.Path()
	out, err := m.runner.Run(ctx, path, argsOutdated, m.timeouts.Query)
	m.record(OpOutdated, "", started, err)
	return out, err
}

// UpgradePackage upgrades a single package by name.
func (m *Manager) UpgradePackage(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoPackage
	}
	if !m.guard.TryAcquire() {
		return ErrBusy
	}
	defer m.guard.Release()

	started := time.Now()
	path, _ := m.locator.Path()
	_, err := m.runner.Run(ctx, path, []string{"upgrade", name}, m.timeouts.Upgrade)
	m.record(OpUpgrade, name, started, err)
	if err != nil {
		return fmt.Errorf("failed to upgrade %s: %w", name, err)
	}

	m.logger.Info("package upgraded", zap.String("package", name))
	return nil
}

// UpgradeAll upgrades every outdated package.
func (m *Manager) UpgradeAll(ctx context.Context) error {
	if !m.guard.TryAcquire() {
		return ErrBusy
	}
	defer m.guard.Release()

	started := time.Now()
	path, _ := m.locator.Path()
	_, err := m.runner.Run(ctx, path, argsUpgradeAll, m.timeouts.Upgrade)
	m.record(OpUpgradeAll, "", started, err)
	if err != nil {
		return fmt.Errorf("failed to upgrade packages: %w", err)
	}

	m.logger.Info("all packages upgraded")
	return nil
}

// DisplayLines formats updates for a menu, in order.
func DisplayLines(updates []brew.PackageUpdate) []string {
	lines := make([]string, 0, len(updates))
	for _, u := range updates {
		lines = append(lines, u.DisplayLine())
	}
	return lines
}

func (m *Manager) record(op, target string, started time.Time, err error) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(Record{
		Op:         op,
		Target:     target,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Err:        err,
	})
}
