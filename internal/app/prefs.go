package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/blackwell-systems/brewster/internal/config"
	"github.com/blackwell-systems/brewster/internal/store"
	"github.com/spf13/cobra"
)

var (
	prefsReset bool

	prefsCmd = &cobra.Command{
		Use:   "prefs [key] [true|false]",
		Short: "Show or change preferences",
		Long: `Show every preference, show one, or set one. --reset goes back to the
default.

Preferences:
  run-update-first        run 'brew update' before every check (default false)
  notifications-enabled   announce newly outdated packages while watching (default true)`,
		Example: `  # Show all preferences
  brewster prefs

  # Refresh brew metadata before each check
  brewster prefs run-update-first true

  # Go back to the default
  brewster prefs run-update-first --reset`,
		Args: cobra.MaximumNArgs(2),
		RunE: runPrefs,
	}
)

func init() {
	prefsCmd.Flags().BoolVar(&prefsReset, "reset", false, "restore the default (all preferences when no key is given)")
}

func runPrefs(cmd *cobra.Command, args []string) error {
	var pref preference
	if len(args) > 0 {
		p, ok := lookupPreference(args[0])
		if !ok {
			return fmt.Errorf("unknown preference %q", args[0])
		}
		pref = p
	}

	if prefsReset && len(args) == 2 {
		return fmt.Errorf("pass a value or --reset, not both")
	}

	var value bool
	if len(args) == 2 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: want true or false", args[1], pref.Key)
		}
		value = v
	}

	return withStore(func(cfg *config.Config, st *store.Store) error {
		out := cmd.OutOrStdout()

		if prefsReset {
			return resetPreferences(out, st, args)
		}

		switch len(args) {
		case 0:
			stored, err := st.ListPreferences()
			if err != nil {
				return fmt.Errorf("failed to read preferences: %w", err)
			}
			for _, p := range knownPreferences {
				value := p.Default
				if v, ok := stored[p.Key]; ok {
					if b, err := strconv.ParseBool(v); err == nil {
						value = b
					}
				}
				fmt.Fprintf(out, "%-24s %-6t %s\n", p.Key, value, p.Description)
			}
		case 1:
			fmt.Fprintf(out, "%t\n", boolPreference(st, pref.Key, pref.Default))
		default:
			if err := st.Set(pref.Key, strconv.FormatBool(value)); err != nil {
				return fmt.Errorf("failed to save %s: %w", pref.Key, err)
			}
			fmt.Fprintf(out, "%s = %t\n", pref.Key, value)
		}
		return nil
	})
}

// resetPreferences deletes the stored value so the default applies again.
func resetPreferences(out io.Writer, st *store.Store, args []string) error {
	prefs := knownPreferences
	if len(args) == 1 {
		p, _ := lookupPreference(args[0])
		prefs = []preference{p}
	}
	for _, p := range prefs {
		if err := st.DeletePreference(p.Key); err != nil {
			return fmt.Errorf("failed to reset %s: %w", p.Key, err)
		}
		fmt.Fprintf(out, "%s = %t (default)\n", p.Key, p.Default)
	}
	return nil
}
