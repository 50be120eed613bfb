// Package schedule re-runs the update check on a fixed, user-selected period.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownInterval is returned for a label outside the supported set.
var ErrUnknownInterval = errors.New("unknown refresh interval")

// Interval is one of the selectable refresh periods.
type Interval int

const (
	Hourly Interval = iota + 1
	TwelveHours
	Daily
	TwoDays
	Weekly
)

// DefaultInterval applies when nothing valid has been persisted.
const DefaultInterval = Daily

var intervalTable = []struct {
	interval Interval
	label    string
	period   time.Duration
}{
	{Hourly, "1h", time.Hour},
	{TwelveHours, "12h", 12 * time.Hour},
	{Daily, "1d", 24 * time.Hour},
	{TwoDays, "2d", 48 * time.Hour},
	{Weekly, "7d", 7 * 24 * time.Hour},
}

// All returns every interval, shortest first.
func All() []Interval {
	out := make([]Interval, 0, len(intervalTable))
	for _, row := range intervalTable {
		out = append(out, row.interval)
	}
	return out
}

// Labels returns the accepted labels, shortest first.
func Labels() []string {
	out := make([]string, 0, len(intervalTable))
	for _, row := range intervalTable {
		out = append(out, row.label)
	}
	return out
}

// ParseInterval accepts a label such as "12h" or "2d".
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, row := range intervalTable {
		if row.label == s {
			return row.interval, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownInterval, s, strings.Join(Labels(), ", "))
}

func (i Interval) String() string {
	for _, row := range intervalTable {
		if row.interval == i {
			return row.label
		}
	}
	return fmt.Sprintf("Interval(%d)", int(i))
}

// Duration returns the period, or 0 for an invalid Interval.
func (i Interval) Duration() time.Duration {
	for _, row := range intervalTable {
		if row.interval == i {
			return row.period
		}
	}
	return 0
}

// Valid reports whether i is in the supported set.
func (i Interval) Valid() bool {
	return i.Duration() > 0
}
