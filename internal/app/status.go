package app

import (
	"fmt"
	"io"
	"time"

	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/blackwell-systems/brewster/internal/updater"
	"github.com/blackwell-systems/brewster/internal/watcher"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show brew location, schedule, daemon state and recent operations",
	Long: `Display where brew was found, the refresh interval and preferences,
whether the watch daemon is running, and the most recent brew operations
with their outcome.`,
	Example: `  # Check status
  brewster status

  # Show more history
  brewster status --history 25`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "number of recent operations to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}

	daemonRunning, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	return withServices(containerOptions{}, func(s services) error {
		out := cmd.OutOrStdout()
		const label = "%-14s"

		fmt.Fprintln(out)

		if path, ok := s.Locator.Path(); ok {
			fmt.Fprintf(out, label+"%s\n", "Brew:", path)
		} else {
			fmt.Fprintf(out, label+"%s\n", "Brew:", output.Error.Sprint("not found"))
		}

		fmt.Fprintf(out, label+"every %s\n", "Interval:", currentInterval(s.Store))
		for _, p := range knownPreferences {
			fmt.Fprintf(out, label+"%s = %t\n", "Preference:", p.Key, boolPreference(s.Store, p.Key, p.Default))
		}

		if daemonRunning {
			pid, _ := watcher.DaemonPID(pidFile)
			fmt.Fprintf(out, label+"running (since %s, PID %d)\n", "Watcher:", daemonSince(pid), pid)
		} else {
			fmt.Fprintf(out, label+"stopped  (run 'brewster watch --daemon')\n", "Watcher:")
		}

		printLastCheck(out, s)
		printNextCheck(out, s, daemonRunning)

		fmt.Fprintf(out, label+"%s\n", "Database:", getDBPath(s.Config))
		fmt.Fprintf(out, label+"%s\n", "Config:", s.Config.Path())

		if statusHistory > 0 {
			ops, err := s.Store.ListOperations(statusHistory)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, output.RenderOperations(ops))
		}

		fmt.Fprintln(out)
		return nil
	})
}

func printLastCheck(out io.Writer, s services) {
	const label = "%-14s"

	last, err := s.Store.LastOperation(updater.OpCheck)
	if err != nil || last == nil {
		fmt.Fprintf(out, label+"never\n", "Last check:")
		return
	}

	result := output.Success.Sprint("ok")
	if !last.Success {
		result = output.Error.Sprint(last.Detail)
	}
	fmt.Fprintf(out, label+"%s ago · %s\n", "Last check:", formatAge(time.Since(last.FinishedAt)), result)
}

// printNextCheck predicts the daemon's next tick from when its timer was
// armed. Manual checks do not move the tick.
func printNextCheck(out io.Writer, s services, daemonRunning bool) {
	const label = "%-14s"

	if !daemonRunning {
		fmt.Fprintf(out, label+"not scheduled (watcher stopped)\n", "Next check:")
		return
	}
	armedAt, ok := schedule.ArmedAt(s.Store)
	if !ok {
		fmt.Fprintf(out, label+"unknown\n", "Next check:")
		return
	}
	now := time.Now()
	next := schedule.NextTick(armedAt, currentInterval(s.Store).Duration(), now)
	fmt.Fprintf(out, label+"in about %s\n", "Next check:", formatAge(next.Sub(now)))
}

// daemonSince reports how long the daemon process has been up.
func daemonSince(pid int) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "unknown"
	}
	created, err := proc.CreateTime()
	if err != nil {
		return "unknown"
	}
	return formatAge(time.Since(time.UnixMilli(created))) + " ago"
}

// formatAge renders a duration at the coarsest useful unit.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
