// Package output renders brewster's terminal output: the update menu, the
// operation history and progress spinners.
package output

import (
	"io"
	"os"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	Formula = color.New(color.FgBlue)
	Cask    = color.New(color.FgMagenta)
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Dim     = color.New(color.Faint)
	Header  = color.New(color.Bold)
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// SetColor forces color output on or off.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// writerIsTTY reports whether w is an *os.File-like writer attached to a
// terminal. Buffers and pipes report false.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

func kindColor(u brew.PackageUpdate) *color.Color {
	if u.IsCask() {
		return Cask
	}
	return Formula
}
