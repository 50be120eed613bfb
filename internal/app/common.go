package app

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/notify"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/spf13/cobra"
)

// preference describes a user-settable boolean preference.
type preference struct {
	Key         string
	Default     bool
	Description string
}

var knownPreferences = []preference{
	{
		Key:         schedule.PrefRunUpdateFirst,
		Default:     false,
		Description: "run 'brew update' before every check",
	},
	{
		Key:         notify.PrefNotificationsEnabled,
		Default:     true,
		Description: "announce newly outdated packages while watching",
	},
}

func lookupPreference(key string) (preference, bool) {
	for _, p := range knownPreferences {
		if p.Key == key {
			return p, true
		}
	}
	return preference{}, false
}

// boolPreference reads key, falling back to def when unset or unparseable.
func boolPreference(prefs brew.Preferences, key string, def bool) bool {
	v, ok := prefs.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// packageName accepts either a bare name or a menu line.
func packageName(arg string) string {
	return strings.TrimSpace(brew.NameFromDisplayLine(strings.TrimSpace(arg)))
}

// currentInterval is the persisted interval, or the default.
func currentInterval(prefs brew.Preferences) schedule.Interval {
	if v, ok := prefs.Get(schedule.PrefInterval); ok {
		if iv, err := schedule.ParseInterval(v); err == nil {
			return iv
		}
	}
	return schedule.DefaultInterval
}

// baseContext is the command's context, or Background when run outside
// Execute.
func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// commandContext returns a context cancelled on Ctrl+C or SIGTERM, so a
// running brew process is killed with the command.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(baseContext(cmd), os.Interrupt, syscall.SIGTERM)
}
