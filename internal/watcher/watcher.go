package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/config"
	"github.com/blackwell-systems/brewster/internal/notify"
	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/blackwell-systems/brewster/internal/updater"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher runs the scheduler and reports what each check found.
type Watcher struct {
	prefs     brew.Preferences
	scheduler *schedule.Scheduler
	tracker   *notify.Tracker
	cfg       *config.Config
	logger    *zap.Logger

	outMu sync.Mutex
	out   io.Writer

	checkOnStart bool
	childArgs    []string
}

// Option configures a Watcher.
type Option func(*watcherOptions)

type watcherOptions struct {
	logger       *zap.Logger
	out          io.Writer
	cfg          *config.Config
	tickers      schedule.TickerFactory
	checkOnStart bool
	childArgs    []string
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *watcherOptions) { o.logger = logger }
}

// WithOutput sets where menus and notifications are printed.
func WithOutput(w io.Writer) Option {
	return func(o *watcherOptions) { o.out = w }
}

// WithConfig enables config file watching for default-interval changes.
func WithConfig(cfg *config.Config) Option {
	return func(o *watcherOptions) { o.cfg = cfg }
}

// WithTickerFactory replaces the scheduler's ticker.
func WithTickerFactory(f schedule.TickerFactory) Option {
	return func(o *watcherOptions) { o.tickers = f }
}

// WithCheckOnStart controls the immediate check when Run begins.
func WithCheckOnStart(enabled bool) Option {
	return func(o *watcherOptions) { o.checkOnStart = enabled }
}

// WithChildArgs sets the arguments the daemon child is launched with.
func WithChildArgs(args ...string) Option {
	return func(o *watcherOptions) { o.childArgs = args }
}

// New creates a new Watcher instance.
func New(refresher schedule.Refresher, prefs brew.Preferences, opts ...Option) (*Watcher, error) {
	if refresher == nil {
		return nil, fmt.Errorf("refresher cannot be nil")
	}
	if prefs == nil {
		return nil, fmt.Errorf("preferences cannot be nil")
	}

	o := watcherOptions{
		logger:       zap.NewNop(),
		out:          os.Stdout,
		checkOnStart: true,
		childArgs:    []string{"watch", "--daemon-child"},
	}
	for _, opt := range opts {
		opt(&o)
	}

	w := &Watcher{
		prefs:        prefs,
		tracker:      notify.NewTracker(),
		cfg:          o.cfg,
		logger:       o.logger,
		out:          o.out,
		checkOnStart: o.checkOnStart,
		childArgs:    o.childArgs,
	}

	schedOpts := []schedule.Option{
		schedule.WithLogger(o.logger),
		schedule.WithResultHandler(w.handleResult),
	}
	if o.tickers != nil {
		schedOpts = append(schedOpts, schedule.WithTickerFactory(o.tickers))
	}
	w.scheduler = schedule.New(refresher, prefs, schedOpts...)
	return w, nil
}

// Scheduler exposes the underlying scheduler.
func (w *Watcher) Scheduler() *schedule.Scheduler {
	return w.scheduler
}

// Start arms the scheduler and begins watching the config file.
func (w *Watcher) Start(ctx context.Context) error {
	w.applyConfigDefault()

	if w.cfg != nil {
		if err := w.cfg.Watch(w.onConfigChange); err != nil {
			w.logger.Warn("config watching disabled", zap.Error(err))
		}
	}

	w.scheduler.Start(ctx)
	return nil
}

// Stop disarms the scheduler.
func (w *Watcher) Stop() error {
	w.scheduler.Stop()
	return nil
}

// Refresh runs one check now.
func (w *Watcher) Refresh(ctx context.Context) {
	_, _ = w.scheduler.RefreshNow(ctx)
}

// ReloadPreferences re-arms the scheduler when the persisted interval was
// changed by another process.
func (w *Watcher) ReloadPreferences() {
	label, ok := w.prefs.Get(schedule.PrefInterval)
	if !ok {
		return
	}
	iv, err := schedule.ParseInterval(label)
	if err != nil {
		w.logger.Warn("ignoring persisted interval", zap.String("value", label), zap.Error(err))
		return
	}
	if iv == w.scheduler.Interval() {
		return
	}
	w.logger.Info("interval changed", zap.Stringer("interval", iv))
	if err := w.scheduler.SetInterval(iv); err != nil {
		w.logger.Warn("failed to apply interval", zap.Error(err))
	}
}

// applyConfigDefault uses the config file's default-interval when the user
// has not picked one.
func (w *Watcher) applyConfigDefault() {
	if w.cfg == nil {
		return
	}
	if _, ok := w.prefs.Get(schedule.PrefInterval); ok {
		return
	}
	w.setIntervalFromConfig()
}

func (w *Watcher) onConfigChange(e fsnotify.Event) {
	w.logger.Info("config file changed", zap.String("file", e.Name), zap.Stringer("op", e.Op))
	w.setIntervalFromConfig()
}

func (w *Watcher) setIntervalFromConfig() {
	label := w.cfg.DefaultInterval()
	if label == "" {
		return
	}
	iv, err := schedule.ParseInterval(label)
	if err != nil {
		w.logger.Warn("ignoring default-interval from config", zap.Error(err))
		return
	}
	if iv == w.scheduler.Interval() {
		return
	}
	if err := w.scheduler.SetInterval(iv); err != nil {
		w.logger.Warn("failed to apply default-interval", zap.Error(err))
	}
}

func (w *Watcher) handleResult(updates []brew.PackageUpdate, err error) {
	if errors.Is(err, updater.ErrBusy) {
		return
	}

	w.print(output.RenderMenu(updates, err))
	if err != nil {
		return
	}

	baseline := !w.tracker.Primed()
	fresh := w.tracker.Observe(updates)
	w.logger.Debug("check observed",
		zap.Int("outdated", len(updates)),
		zap.Int("new", len(fresh)),
		zap.Bool("baseline", baseline),
	)
	if len(fresh) == 0 || !w.notificationsEnabled() {
		return
	}

	w.logger.Info("new updates available", zap.Strings("packages", updater.DisplayLines(fresh)))
	w.print(output.RenderNotification(fresh))
}

// notificationsEnabled defaults to true until the user turns them off.
func (w *Watcher) notificationsEnabled() bool {
	v, ok := w.prefs.Get(notify.PrefNotificationsEnabled)
	return !ok || v != "false"
}

func (w *Watcher) print(s string) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	fmt.Fprint(w.out, s)
}
