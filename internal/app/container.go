package app

import (
	"fmt"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/config"
	"github.com/blackwell-systems/brewster/internal/logging"
	"github.com/blackwell-systems/brewster/internal/store"
	"github.com/blackwell-systems/brewster/internal/updater"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// historyLimit is how many operations are kept in the database.
const historyLimit = 200

// services is everything a command needs, resolved from the container.
type services struct {
	dig.In

	Config  *config.Config
	Logger  *zap.Logger
	Store   *store.Store
	Locator *brew.Locator
	Manager *updater.Manager
}

// containerOptions describe the process the container is built for.
type containerOptions struct {
	// LogFile sends logs to a JSON file instead of stderr.
	LogFile string
}

// newContainer registers every provider with a fresh DIG container.
func newContainer(opts containerOptions) (*dig.Container, error) {
	container := dig.New()
	providers := []any{
		func() (*config.Config, error) {
			return config.Load(configPath)
		},
		func(cfg *config.Config) (*zap.Logger, error) {
			return logging.New(logging.Options{
				Level:   cfg.LogLevel(),
				Verbose: verbose,
				File:    opts.LogFile,
			})
		},
		func(cfg *config.Config) (*store.Store, error) {
			st, err := store.Open(getDBPath(cfg))
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}
			return st, nil
		},
		func(st *store.Store, cfg *config.Config, logger *zap.Logger) *brew.Locator {
			return brew.NewLocator(st,
				brew.WithSearchPaths(cfg.SearchPaths()),
				brew.WithLocatorLogger(logger.Named("locator")),
			)
		},
		func(logger *zap.Logger) *brew.Runner {
			return brew.NewRunner(logger.Named("runner"))
		},
		func(st *store.Store, logger *zap.Logger) updater.Recorder {
			return &historyRecorder{store: st, keep: historyLimit, logger: logger}
		},
		func(loc *brew.Locator, runner *brew.Runner, rec updater.Recorder, cfg *config.Config, logger *zap.Logger) *updater.Manager {
			return updater.NewManager(loc, runner,
				updater.WithTimeouts(updater.Timeouts{
					Query:   cfg.QueryTimeout(),
					Refresh: cfg.RefreshTimeout(),
					Upgrade: cfg.UpgradeTimeout(),
				}),
				updater.WithRecorder(rec),
				updater.WithLogger(logger.Named("updater")),
			)
		},
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// withServices builds the container, hands the resolved services to fn and
// closes the store afterwards.
func withServices(opts containerOptions, fn func(s services) error) error {
	container, err := newContainer(opts)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	var runErr error
	err = container.Invoke(func(s services) {
		defer s.Store.Close()
		defer func() { _ = s.Logger.Sync() }()
		runErr = fn(s)
	})
	if err != nil {
		return dig.RootCause(err)
	}
	return runErr
}

// historyRecorder writes each finished operation to the store and keeps
// the table bounded.
type historyRecorder struct {
	store  *store.Store
	keep   int
	logger *zap.Logger
}

func (r *historyRecorder) Record(rec updater.Record) {
	op := &store.Operation{
		Op:         rec.Op,
		Target:     rec.Target,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Success:    rec.Err == nil,
	}
	if rec.Err != nil {
		op.Detail = brew.Describe(rec.Err)
	}

	if err := r.store.RecordOperation(op); err != nil {
		r.logger.Warn("failed to record operation", zap.String("op", rec.Op), zap.Error(err))
		return
	}
	if r.keep > 0 {
		if _, err := r.store.PruneOperations(r.keep); err != nil {
			r.logger.Warn("failed to prune history", zap.Error(err))
		}
	}
}

// withStore resolves only the config and the store, for commands that never
// run brew.
func withStore(fn func(cfg *config.Config, st *store.Store) error) error {
	container, err := newContainer(containerOptions{})
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	var runErr error
	err = container.Invoke(func(cfg *config.Config, st *store.Store) {
		defer st.Close()
		runErr = fn(cfg, st)
	})
	if err != nil {
		return dig.RootCause(err)
	}
	return runErr
}
