package app

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/brewster/internal/config"
	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/blackwell-systems/brewster/internal/store"
	"github.com/blackwell-systems/brewster/internal/watcher"
	"github.com/spf13/cobra"
)

var intervalCmd = &cobra.Command{
	Use:   "interval [" + strings.Join(schedule.Labels(), "|") + "]",
	Short: "Show or set how often the watcher checks",
	Long: `Without an argument, show the refresh interval and the choices.
With one, save it. A running watch daemon picks the new interval up
immediately and restarts its timer from now.`,
	Example: `  # Show the current interval
  brewster interval

  # Check every two days
  brewster interval 2d`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: schedule.Labels(),
	RunE:      runInterval,
}

func runInterval(cmd *cobra.Command, args []string) error {
	return withStore(func(cfg *config.Config, st *store.Store) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			current := currentInterval(st)
			for _, iv := range schedule.All() {
				if iv == current {
					fmt.Fprintf(out, "%s %s\n", output.Success.Sprint("●"), iv)
				} else {
					fmt.Fprintf(out, "  %s\n", output.Dim.Sprint(iv.String()))
				}
			}
			return nil
		}

		iv, err := schedule.ParseInterval(args[0])
		if err != nil {
			return err
		}
		if err := st.Set(schedule.PrefInterval, iv.String()); err != nil {
			return fmt.Errorf("failed to save interval: %w", err)
		}
		fmt.Fprintf(out, "Interval set to %s\n", iv)

		notifyRunningDaemon(cmd)
		return nil
	})
}

// notifyRunningDaemon tells a background watcher to re-read preferences.
func notifyRunningDaemon(cmd *cobra.Command) {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil || !running {
		return
	}
	if err := watcher.NotifyDaemon(pidFile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not notify daemon: %v\n", err)
	}
}
