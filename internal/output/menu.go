package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/blackwell-systems/brewster/internal/store"
)

// Menu titles.
const (
	TitleIdle    = "🍺"
	TitleBusy    = "Brewing..."
	TitleError   = "Brew Error"
	UpToDateText = "All Up-To-Date!"
)

// Title is the one-word summary of a check: the idle mug, the outdated
// count, or the error marker.
func Title(updates []brew.PackageUpdate, err error) string {
	switch {
	case err != nil:
		return TitleError
	case len(updates) == 0:
		return TitleIdle
	default:
		return fmt.Sprintf("↑%d", len(updates))
	}
}

// RenderMenu renders a check result as the update menu.
func RenderMenu(updates []brew.PackageUpdate, err error) string {
	var sb strings.Builder

	sb.WriteString(Header.Sprint(Title(updates, err)))
	sb.WriteString("\n")

	if err != nil {
		sb.WriteString("  ")
		sb.WriteString(Error.Sprint(brew.Describe(err)))
		sb.WriteString("\n")
		return sb.String()
	}

	if len(updates) == 0 {
		sb.WriteString("  ")
		sb.WriteString(Success.Sprint(UpToDateText))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, u := range updates {
		line := u.DisplayLine()
		if u.Pinned {
			line += Dim.Sprint(" [pinned]")
		}
		sb.WriteString("  ")
		sb.WriteString(kindColor(u).Sprint(line))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(Dim.Sprint("Upgrade one: brewster upgrade <name>   Upgrade All: brewster upgrade --all"))
	sb.WriteString("\n")
	return sb.String()
}

// RenderNotification renders the new-updates announcement.
func RenderNotification(fresh []brew.PackageUpdate) string {
	if len(fresh) == 0 {
		return ""
	}
	names := make([]string, 0, len(fresh))
	for _, u := range fresh {
		names = append(names, u.Name)
	}
	noun := "updates"
	if len(fresh) == 1 {
		noun = "update"
	}
	return fmt.Sprintf("%s %d new %s available: %s\n",
		Warning.Sprint("↑"), len(fresh), noun, strings.Join(names, ", "))
}

// RenderOperations renders the operation history, newest first.
func RenderOperations(ops []*store.Operation) string {
	if len(ops) == 0 {
		return "No operations recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-20s %-16s %-9s %s\n",
		"Operation", "Target", "When", "Took", "Result"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, op := range ops {
		target := op.Target
		if target == "" {
			target = "-"
		}
		result := Success.Sprint("ok")
		if !op.Success {
			result = Error.Sprint(truncate(op.Detail, 40))
		}
		sb.WriteString(fmt.Sprintf("%-12s %-20s %-16s %-9s %s\n",
			op.Op,
			truncate(target, 20),
			formatRelativeTime(op.StartedAt),
			formatDuration(op.Duration()),
			result))
	}
	return sb.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	default:
		return plural(int(diff.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
