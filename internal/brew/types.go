package brew

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two package sources reported by `brew outdated`.
type Kind int

const (
	KindFormula Kind = iota
	KindCask
)

// String returns "formula" or "cask".
func (k Kind) String() string {
	switch k {
	case KindFormula:
		return "formula"
	case KindCask:
		return "cask"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// separator is the operator placed between installed and current versions
// in a display line.
func (k Kind) separator() string {
	if k == KindCask {
		return "!="
	}
	return "<"
}

// PackageUpdate is one outdated formula or cask.
//
// Values are produced by ParseOutdated and treated as read-only afterwards;
// callers that need a different view build a new value instead of mutating.
type PackageUpdate struct {
	Name              string
	InstalledVersions []string
	CurrentVersion    string
	Kind              Kind

	// Pinned and PinnedVersion are only ever set for formulae.
	Pinned        bool
	PinnedVersion *string
}

// IsCask reports whether the update refers to a cask.
func (u PackageUpdate) IsCask() bool {
	return u.Kind == KindCask
}

// Validate checks the model invariants.
func (u PackageUpdate) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("package name is empty")
	}
	if len(u.InstalledVersions) == 0 {
		return fmt.Errorf("%s: no installed versions", u.Name)
	}
	if u.CurrentVersion == "" {
		return fmt.Errorf("%s: current version is empty", u.Name)
	}
	if u.Kind == KindCask && (u.Pinned || u.PinnedVersion != nil) {
		return fmt.Errorf("%s: casks cannot be pinned", u.Name)
	}
	if u.Pinned && u.PinnedVersion == nil {
		return fmt.Errorf("%s: pinned without a pinned version", u.Name)
	}
	return nil
}

// DisplayLine renders the update the way the menu shows it, e.g.
//
//	git (2.40.0) < 2.41.0
//	firefox (118.0, 119.0) != 120.0
func (u PackageUpdate) DisplayLine() string {
	return fmt.Sprintf("%s (%s) %s %s",
		u.Name,
		strings.Join(u.InstalledVersions, ", "),
		u.Kind.separator(),
		u.CurrentVersion,
	)
}

const displayNameSeparator = " ("

// NameFromDisplayLine extracts the package name from a line produced by
// DisplayLine by cutting at the first " (". A line without the separator is
// returned unchanged.
func NameFromDisplayLine(line string) string {
	name, _, _ := strings.Cut(line, displayNameSeparator)
	return name
}
