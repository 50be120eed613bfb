package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/updater"
	"go.uber.org/zap"
)

// Preference keys read by the scheduler.
const (
	PrefInterval       = "interval"
	PrefRunUpdateFirst = "run-update-first"

	// PrefArmedAt holds the RFC 3339 time the running timer was armed, or
	// is empty while idle.
	PrefArmedAt = "armed-at"
)

// State is whether a periodic timer is armed.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Refresher performs one update check.
type Refresher interface {
	CheckForUpdates(ctx context.Context, runUpdateFirst bool) ([]brew.PackageUpdate, error)
}

// Ticker is the part of time.Ticker the scheduler uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// ResultHandler receives the outcome of every check the scheduler ran.
type ResultHandler func(updates []brew.PackageUpdate, err error)

// Scheduler triggers a check every interval and on demand.
type Scheduler struct {
	refresher Refresher
	prefs     brew.Preferences
	newTicker TickerFactory
	onResult  ResultHandler
	logger    *zap.Logger

	mu       sync.Mutex
	interval Interval
	ticker   Ticker
	rearm    chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickerFactory replaces time.NewTicker.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Scheduler) { s.newTicker = f }
}

// WithResultHandler registers a callback for check results.
func WithResultHandler(h ResultHandler) Option {
	return func(s *Scheduler) { s.onResult = h }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates an idle Scheduler. The interval is read from prefs,
// falling back to DefaultInterval.
func New(refresher Refresher, prefs brew.Preferences, opts ...Option) *Scheduler {
	s := &Scheduler{
		refresher: refresher,
		prefs:     prefs,
		newTicker: newStdTicker,
		logger:    zap.NewNop(),
		rearm:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.interval = s.persistedInterval()
	return s
}

func (s *Scheduler) persistedInterval() Interval {
	if s.prefs == nil {
		return DefaultInterval
	}
	raw, ok := s.prefs.Get(PrefInterval)
	if !ok || raw == "" {
		return DefaultInterval
	}
	iv, err := ParseInterval(raw)
	if err != nil {
		s.logger.Warn("ignoring persisted interval", zap.String("value", raw), zap.Error(err))
		return DefaultInterval
	}
	return iv
}

// Interval returns the current interval.
func (s *Scheduler) Interval() Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// State reports whether the timer is armed.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return Armed
	}
	return Idle
}

// Start arms the timer and runs the tick loop until Stop or ctx ends.
// Starting an armed scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = s.newTicker(s.interval.Duration())
	s.stopCh = make(chan struct{})
	s.recordArmed(time.Now())

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)

	s.logger.Info("scheduler armed", zap.Stringer("interval", s.interval))
}

// SetInterval replaces the period and persists it. When armed, the old
// timer is stopped before the new one starts.
func (s *Scheduler) SetInterval(iv Interval) error {
	if !iv.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownInterval, int(iv))
	}

	s.mu.Lock()
	s.interval = iv
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = s.newTicker(iv.Duration())
		s.recordArmed(time.Now())
		select {
		case s.rearm <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	s.logger.Info("refresh interval changed", zap.Stringer("interval", iv))

	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.Set(PrefInterval, iv.String()); err != nil {
		return fmt.Errorf("failed to persist interval: %w", err)
	}
	return nil
}

// RefreshNow runs one check immediately without touching the timer. A busy
// rejection is logged and returned, not retried.
func (s *Scheduler) RefreshNow(ctx context.Context) ([]brew.PackageUpdate, error) {
	return s.refresh(ctx, "manual")
}

// Stop disarms the timer and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	close(s.stopCh)
	s.recordArmed(time.Time{})
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C()
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			s.disarm(stopCh)
			return
		case <-stopCh:
			return
		case <-s.rearm:
		case <-tick:
			_, _ = s.refresh(ctx, "scheduled")
		}
	}
}

// disarm clears the timer left behind when the loop ends on ctx. A later
// Start may already have replaced it, so only the loop's own timer is
// touched. Stop still works afterwards and returns at once.
func (s *Scheduler) disarm(stopCh <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil || s.stopCh != stopCh {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	s.recordArmed(time.Time{})
	s.logger.Info("scheduler stopped", zap.String("reason", "context done"))
}

// recordArmed persists when the timer was armed so other processes can
// predict the next tick. A zero t clears it. Must be called with mu held.
func (s *Scheduler) recordArmed(t time.Time) {
	if s.prefs == nil {
		return
	}
	value := ""
	if !t.IsZero() {
		value = t.UTC().Format(time.RFC3339)
	}
	if err := s.prefs.Set(PrefArmedAt, value); err != nil {
		s.logger.Warn("failed to record timer state", zap.Error(err))
	}
}

// ArmedAt reads the time a watcher's timer was armed from prefs.
func ArmedAt(prefs brew.Preferences) (time.Time, bool) {
	raw, ok := prefs.Get(PrefArmedAt)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NextTick returns the first tick after now of a timer with the given
// period that was armed at armedAt.
func NextTick(armedAt time.Time, period time.Duration, now time.Time) time.Time {
	if period <= 0 || now.Before(armedAt) {
		return armedAt.Add(period)
	}
	elapsed := now.Sub(armedAt)
	return armedAt.Add((elapsed/period + 1) * period)
}

func (s *Scheduler) refresh(ctx context.Context, trigger string) ([]brew.PackageUpdate, error) {
	runUpdateFirst := false
	if s.prefs != nil {
		v, _ := s.prefs.Get(PrefRunUpdateFirst)
		runUpdateFirst = v == "true"
	}

	log := s.logger.With(zap.String("trigger", trigger))
	log.Debug("refreshing", zap.Bool("run_update_first", runUpdateFirst))

	updates, err := s.refresher.CheckForUpdates(ctx, runUpdateFirst)
	switch {
	case errors.Is(err, updater.ErrBusy):
		log.Info("refresh skipped, another operation is running")
	case err != nil:
		log.Warn("refresh failed", zap.String("detail", brew.Describe(err)))
	default:
		log.Debug("refresh complete", zap.Int("outdated", len(updates)))
	}

	if s.onResult != nil {
		s.onResult(updates, err)
	}
	return updates, err
}
