package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/brewster/internal/config"
	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	verbose    bool
	noColor    bool

	// RootCmd is the root command for brewster
	RootCmd = &cobra.Command{
		Use:   "brewster",
		Short: "Keep an eye on outdated Homebrew packages",
		Long: `brewster checks Homebrew for outdated formulae and casks, on demand or
on a schedule, and upgrades them one at a time.

Every brew invocation is bounded by a timeout, and only one runs at a time:
a check started while an upgrade is in flight is refused, not queued.

Quick Start:
  1. brewster check
  2. brewster interval 12h
  3. brewster watch --daemon

Examples:
  # List outdated packages
  brewster check

  # Refresh brew metadata first
  brewster check --update

  # Upgrade one package, or everything
  brewster upgrade wget
  brewster upgrade --all

  # See what the daemon is doing
  brewster status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetColor(!noColor && output.IsColorEnabled())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "brewster: Homebrew update checker")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'brewster check' to list outdated packages.")
			fmt.Fprintln(out, "Run 'brewster --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.brewster/brewster.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/brewster/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(outdatedCmd)
	RootCmd.AddCommand(upgradeCmd)
	RootCmd.AddCommand(intervalCmd)
	RootCmd.AddCommand(prefsCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the --db flag value, or the configured database path.
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DatabasePath()
}

// dataFile returns name inside ~/.brewster, creating the directory.
func dataFile(name string) (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create brewster directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	return dataFile("watch.pid")
}

// getDefaultLogFile returns the default daemon log file path
func getDefaultLogFile() (string, error) {
	return dataFile("brewster.log")
}
