package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/spf13/cobra"
)

var (
	checkUpdate bool
	checkJSON   bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "List outdated formulae and casks",
		Long: `Ask Homebrew which installed formulae and casks have newer versions.

With --update (or the run-update-first preference) brew's metadata is
refreshed first. A failed refresh is logged and the check carries on with
the metadata already on disk.

The check is refused if another brew operation started by this process is
still running.`,
		Example: `  # List outdated packages
  brewster check

  # Refresh metadata first
  brewster check --update

  # Machine-readable output
  brewster check --json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkUpdate, "update", false, "run 'brew update' before checking")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
}

// errCheckFailed is returned after the failure has already been shown.
var errCheckFailed = errors.New("update check failed")

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	return withServices(containerOptions{}, func(s services) error {
		runUpdateFirst := checkUpdate || boolPreference(s.Store, schedule.PrefRunUpdateFirst, false)

		var spinner *output.Spinner
		if !checkJSON {
			spinner = output.NewSpinner("Checking for updates").WithTimeout(s.Config.QueryTimeout())
			spinner.SetWriter(cmd.ErrOrStderr())
			spinner.Start()
		}
		updates, err := s.Manager.CheckForUpdates(ctx, runUpdateFirst)
		if spinner != nil {
			spinner.Stop()
		}

		if checkJSON {
			if jsonErr := writeCheckJSON(cmd.OutOrStdout(), updates, err); jsonErr != nil {
				return jsonErr
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), output.RenderMenu(updates, err))
		}

		if err != nil {
			return errCheckFailed
		}
		return nil
	})
}

type jsonUpdate struct {
	Name              string   `json:"name"`
	Kind              string   `json:"kind"`
	InstalledVersions []string `json:"installed_versions"`
	CurrentVersion    string   `json:"current_version"`
	Pinned            bool     `json:"pinned"`
	PinnedVersion     *string  `json:"pinned_version"`
	DisplayLine       string   `json:"display_line"`
}

type jsonCheckResult struct {
	Updates []jsonUpdate `json:"updates"`
	Error   string       `json:"error,omitempty"`
}

func writeCheckJSON(w io.Writer, updates []brew.PackageUpdate, checkErr error) error {
	result := jsonCheckResult{Updates: make([]jsonUpdate, 0, len(updates))}
	for _, u := range updates {
		result.Updates = append(result.Updates, jsonUpdate{
			Name:              u.Name,
			Kind:              u.Kind.String(),
			InstalledVersions: u.InstalledVersions,
			CurrentVersion:    u.CurrentVersion,
			Pinned:            u.Pinned,
			PinnedVersion:     u.PinnedVersion,
			DisplayLine:       u.DisplayLine(),
		})
	}
	if checkErr != nil {
		result.Error = brew.Describe(checkErr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
