package app

import (
	"fmt"

	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchRefresh     bool
	watchNoInitial   bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Check for updates on a schedule",
		Long: `Check for outdated packages every interval (see 'brewster interval') and
print the update menu after each check. When a package shows up that was
not outdated at the previous check, a notification line is printed too
(see 'brewster prefs notifications-enabled').

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process, logging to a file
  • Stop: Stop a running daemon
  • Refresh: Ask a running daemon to check now

Signals understood by the watcher:
  SIGHUP   check now
  SIGUSR1  re-read the interval preference
  SIGTERM  shut down

Changing default-interval in the config file re-arms a running watcher.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  brewster watch

  # Run as background daemon
  brewster watch --daemon

  # Ask the daemon to check now
  brewster watch --refresh

  # Stop running daemon
  brewster watch --stop`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.brewster/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.brewster/brewster.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().BoolVar(&watchRefresh, "refresh", false, "ask a running daemon to check now")
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial-check", false, "wait for the first interval before checking")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	watchCmd.MarkFlagsMutuallyExclusive("daemon", "stop", "refresh")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Get default paths if not specified
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	switch {
	case watchStop:
		return stopWatchDaemon(cmd)
	case watchRefresh:
		return refreshWatchDaemon(cmd)
	}

	opts := containerOptions{}
	if watchDaemonChild {
		opts.LogFile = watchLogFile
	}

	return withServices(opts, func(s services) error {
		w, err := watcher.New(s.Manager, s.Store,
			watcher.WithLogger(s.Logger.Named("watcher")),
			watcher.WithConfig(s.Config),
			watcher.WithOutput(cmd.OutOrStdout()),
			watcher.WithCheckOnStart(!watchNoInitial),
			watcher.WithChildArgs(daemonChildArgs()...),
		)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}

		switch {
		case watchDaemon:
			return startWatchDaemon(cmd, w)
		case watchDaemonChild:
			// Output is redirected to the log file.
			return w.RunDaemon(baseContext(cmd), watchPIDFile)
		default:
			return runWatchForeground(cmd, w)
		}
	})
}

// daemonChildArgs rebuilds the command line for the background process.
func daemonChildArgs() []string {
	args := []string{"watch", "--daemon-child",
		"--pid-file", watchPIDFile,
		"--log-file", watchLogFile,
	}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	if watchNoInitial {
		args = append(args, "--no-initial-check")
	}
	return args
}

func stopWatchDaemon(cmd *cobra.Command) error {
	// Check if daemon is running
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	spinner.SetWriter(cmd.OutOrStdout())
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func refreshWatchDaemon(cmd *cobra.Command) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		return fmt.Errorf("daemon is not running (start it with 'brewster watch --daemon')")
	}

	if err := watcher.RefreshDaemon(watchPIDFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Check requested; results go to %s\n", watchLogFile)
	return nil
}

func startWatchDaemon(cmd *cobra.Command, w *watcher.Watcher) error {
	// Check if already running
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", watchPIDFile)
	}

	out := cmd.OutOrStdout()
	spinner := output.NewSpinner("Starting daemon...")
	spinner.SetWriter(out)
	spinner.Start()
	if err := w.StartDaemon(watchPIDFile, watchLogFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Fprintf(out, "\nUpdate watcher started\n")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: brewster watch --stop\n")

	return nil
}

func runWatchForeground(cmd *cobra.Command, w *watcher.Watcher) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking for updates every %s (press Ctrl+C to stop)...\n\n", w.Scheduler().Interval())

	if err := w.Run(baseContext(cmd), ""); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nUpdate watcher stopped")
	return nil
}
