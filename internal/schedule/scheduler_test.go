package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/updater"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	period  time.Duration
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type tickerLog struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (l *tickerLog) factory(d time.Duration) Ticker {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &fakeTicker{period: d, ch: make(chan time.Time, 1)}
	l.tickers = append(l.tickers, t)
	return t
}

func (l *tickerLog) armed() []*fakeTicker {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*fakeTicker
	for _, t := range l.tickers {
		if !t.isStopped() {
			out = append(out, t)
		}
	}
	return out
}

func (l *tickerLog) last() *fakeTicker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tickers[len(l.tickers)-1]
}

type fakeRefresher struct {
	mu      sync.Mutex
	calls   []bool
	updates []brew.PackageUpdate
	err     error
	called  chan struct{}
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{called: make(chan struct{}, 16)}
}

func (f *fakeRefresher) CheckForUpdates(_ context.Context, runUpdateFirst bool) ([]brew.PackageUpdate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runUpdateFirst)
	updates, err := f.updates, f.err
	f.mu.Unlock()
	f.called <- struct{}{}
	return updates, err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemPrefs() *memPrefs { return &memPrefs{values: map[string]string{}} }

func (p *memPrefs) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *memPrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func TestNew_IdleWithDefaultInterval(t *testing.T) {
	s := New(newFakeRefresher(), newMemPrefs())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, Daily, s.Interval())
}

func TestNew_ReadsPersistedInterval(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values[PrefInterval] = "2d"

	s := New(newFakeRefresher(), prefs)
	assert.Equal(t, TwoDays, s.Interval())
}

func TestNew_IgnoresCorruptInterval(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values[PrefInterval] = "fortnightly"

	s := New(newFakeRefresher(), prefs)
	assert.Equal(t, DefaultInterval, s.Interval())
}

func TestStart_ArmsAtPersistedInterval(t *testing.T) {
	log := &tickerLog{}
	prefs := newMemPrefs()
	prefs.values[PrefInterval] = "12h"

	s := New(newFakeRefresher(), prefs, WithTickerFactory(log.factory))
	s.Start(context.Background())
	defer s.Stop()

	assert.Equal(t, Armed, s.State())
	armed := log.armed()
	require.Len(t, armed, 1)
	assert.Equal(t, 12*time.Hour, armed[0].period)

	s.Start(context.Background())
	assert.Len(t, log.tickers, 1, "second Start must not arm another timer")
}

func TestTickTriggersCheck(t *testing.T) {
	log := &tickerLog{}
	refresher := newFakeRefresher()
	prefs := newMemPrefs()
	prefs.values[PrefRunUpdateFirst] = "true"

	results := make(chan int, 1)
	s := New(refresher, prefs,
		WithTickerFactory(log.factory),
		WithResultHandler(func(updates []brew.PackageUpdate, err error) {
			results <- len(updates)
		}),
	)
	refresher.updates = []brew.PackageUpdate{{Name: "git"}}

	s.Start(context.Background())
	defer s.Stop()

	log.last().ch <- time.Now()

	select {
	case n := <-results:
		assert.Equal(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not trigger a check")
	}

	refresher.mu.Lock()
	assert.Equal(t, []bool{true}, refresher.calls)
	refresher.mu.Unlock()
}

func TestSetInterval_ReplacesTimerAndPersists(t *testing.T) {
	log := &tickerLog{}
	refresher := newFakeRefresher()
	prefs := newMemPrefs()

	s := New(refresher, prefs, WithTickerFactory(log.factory))
	s.Start(context.Background())
	defer s.Stop()

	first := log.last()
	require.NoError(t, s.SetInterval(Hourly))

	assert.True(t, first.isStopped())
	armed := log.armed()
	require.Len(t, armed, 1)
	assert.Equal(t, time.Hour, armed[0].period)
	assert.Equal(t, "1h", prefs.values[PrefInterval])

	// The loop follows the new timer.
	armed[0].ch <- time.Now()
	select {
	case <-refresher.called:
	case <-time.After(5 * time.Second):
		t.Fatal("new timer did not trigger a check")
	}
}

func TestSetInterval_WhileIdle(t *testing.T) {
	log := &tickerLog{}
	prefs := newMemPrefs()
	s := New(newFakeRefresher(), prefs, WithTickerFactory(log.factory))

	require.NoError(t, s.SetInterval(Weekly))
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, log.tickers)
	assert.Equal(t, "7d", prefs.values[PrefInterval])

	s.Start(context.Background())
	defer s.Stop()
	assert.Equal(t, 7*24*time.Hour, log.last().period)
}

func TestSetInterval_RejectsInvalid(t *testing.T) {
	s := New(newFakeRefresher(), newMemPrefs())
	err := s.SetInterval(Interval(42))
	assert.ErrorIs(t, err, ErrUnknownInterval)
	assert.Equal(t, Daily, s.Interval())
}

func TestRefreshNow_LeavesTimerAlone(t *testing.T) {
	log := &tickerLog{}
	refresher := newFakeRefresher()
	s := New(refresher, newMemPrefs(), WithTickerFactory(log.factory))
	s.Start(context.Background())
	defer s.Stop()

	_, err := s.RefreshNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.callCount())
	assert.Len(t, log.tickers, 1)
	assert.False(t, log.last().isStopped())
	assert.Equal(t, Daily, s.Interval())
}

func TestRefreshNow_BusyIsReportedNotRetried(t *testing.T) {
	refresher := newFakeRefresher()
	refresher.err = updater.ErrBusy

	var handled []error
	s := New(refresher, newMemPrefs(), WithResultHandler(func(_ []brew.PackageUpdate, err error) {
		handled = append(handled, err)
	}))

	_, err := s.RefreshNow(context.Background())
	assert.True(t, errors.Is(err, updater.ErrBusy))
	assert.Equal(t, 1, refresher.callCount())
	require.Len(t, handled, 1)
	assert.ErrorIs(t, handled[0], updater.ErrBusy)
}

func TestStop_ReturnsToIdle(t *testing.T) {
	log := &tickerLog{}
	s := New(newFakeRefresher(), newMemPrefs(), WithTickerFactory(log.factory))

	s.Stop()
	assert.Equal(t, Idle, s.State())

	s.Start(context.Background())
	s.Stop()

	assert.Equal(t, Idle, s.State())
	assert.Empty(t, log.armed())
}

func TestContextCancelEndsLoop(t *testing.T) {
	log := &tickerLog{}
	refresher := newFakeRefresher()
	s := New(refresher, newMemPrefs(), WithTickerFactory(log.factory))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestContextCancelDisarms(t *testing.T) {
	log := &tickerLog{}
	prefs := newMemPrefs()
	s := New(newFakeRefresher(), prefs, WithTickerFactory(log.factory))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	_, armed := ArmedAt(prefs)
	assert.True(t, armed)

	cancel()
	require.Eventually(t, func() bool { return s.State() == Idle }, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, log.armed())
	_, armed = ArmedAt(prefs)
	assert.False(t, armed)

	s.Start(context.Background())
	defer s.Stop()
	assert.Equal(t, Armed, s.State())
	assert.Len(t, log.armed(), 1)
}

func TestArmedAt_RecordedOnArmAndCleared(t *testing.T) {
	log := &tickerLog{}
	prefs := newMemPrefs()
	s := New(newFakeRefresher(), prefs, WithTickerFactory(log.factory))

	_, ok := ArmedAt(prefs)
	assert.False(t, ok)

	before := time.Now().Add(-time.Second)
	s.Start(context.Background())
	first, ok := ArmedAt(prefs)
	require.True(t, ok)
	assert.True(t, first.After(before))

	require.NoError(t, s.SetInterval(Hourly))
	second, ok := ArmedAt(prefs)
	require.True(t, ok)
	assert.False(t, second.Before(first))

	s.Stop()
	_, ok = ArmedAt(prefs)
	assert.False(t, ok)

	prefs.values[PrefArmedAt] = "yesterday"
	_, ok = ArmedAt(prefs)
	assert.False(t, ok)
}

func TestNextTick(t *testing.T) {
	armed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first tick", armed.Add(30 * time.Minute), armed.Add(time.Hour)},
		{"exactly on a tick", armed.Add(2 * time.Hour), armed.Add(3 * time.Hour)},
		{"after several ticks", armed.Add(5*time.Hour + time.Minute), armed.Add(6 * time.Hour)},
		{"clock behind armed time", armed.Add(-time.Minute), armed.Add(time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextTick(armed, time.Hour, tt.now))
		})
	}
}

// TestSetInterval_LastSelectionWins checks that any sequence of selections
// leaves exactly one armed timer at the last selected period.
func TestSetInterval_LastSelectionWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("one armed timer at the last interval", prop.ForAll(
		func(picks []int) bool {
			log := &tickerLog{}
			prefs := newMemPrefs()
			s := New(newFakeRefresher(), prefs, WithTickerFactory(log.factory))
			s.Start(context.Background())
			defer s.Stop()

			all := All()
			want := DefaultInterval
			for _, p := range picks {
				want = all[p]
				if err := s.SetInterval(want); err != nil {
					return false
				}
			}

			armed := log.armed()
			if len(armed) != 1 || armed[0].period != want.Duration() {
				return false
			}
			if len(picks) > 0 && prefs.values[PrefInterval] != want.String() {
				return false
			}
			return s.Interval() == want
		},
		gen.SliceOf(gen.IntRange(0, len(All())-1)),
	))

	properties.TestingRun(t)
}
