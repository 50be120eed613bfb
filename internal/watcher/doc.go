// Package watcher keeps the update check running in the background.
//
// A Watcher owns a refresh scheduler and reacts to its results: it prints
// the update menu, diffs each result against the previous one and announces
// packages that became outdated since the last check.
//
// Key features:
//   - Periodic checks at the persisted interval (1h, 12h, 1d, 2d, 7d)
//   - SIGHUP triggers an immediate check; SIGTERM/SIGINT shut down
//   - Config file watching: a new default-interval re-arms the timer
//   - Daemon mode support with PID file management
//
// Example usage:
//
//	st, err := store.Open("~/.brewster/brewster.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer st.Close()
//
//	mgr := updater.NewManager(brew.NewLocator(st), brew.NewRunner(logger))
//	w, err := watcher.New(mgr, st)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Run in the foreground until a signal arrives
//	if err := w.Run(ctx, ""); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or start as daemon
//	if err := w.StartDaemon("/tmp/brewster.pid", "/tmp/brewster.log"); err != nil {
//		log.Fatal(err)
//	}
package watcher
