package brew

import (
	"encoding/json"
	"fmt"
	"strings"
)

// outdatedReport represents the structure of `brew outdated --json` output.
// Every field is a pointer so a missing key can be told apart from a zero
// value; decoding is all-or-nothing.
type outdatedReport struct {
	Formulae *[]outdatedFormula `json:"formulae"`
	Casks    *[]outdatedCask    `json:"casks"`
}

// outdatedFormula represents one formula entry in the outdated report
type outdatedFormula struct {
	Name              *string    `json:"name"`
	InstalledVersions *[]*string `json:"installed_versions"`
	CurrentVersion    *string    `json:"current_version"`
	Pinned            *bool      `json:"pinned"`
	PinnedVersion     *string    `json:"pinned_version"`
}

// outdatedCask represents one cask entry in the outdated report
type outdatedCask struct {
	Name              *string    `json:"name"`
	InstalledVersions *[]*string `json:"installed_versions"`
	CurrentVersion    *string    `json:"current_version"`
}

// ParseOutdated decodes the output of `brew outdated --json`.
//
// brew may print warnings before the JSON document, so everything before the
// first '{' is discarded. Formulae come first in source order, followed by
// casks in source order. Any missing or mistyped field fails the whole report;
// the error wraps ErrParseFailed.
func ParseOutdated(raw string) ([]PackageUpdate, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no opening brace found", ErrParseFailed)
	}

	var report outdatedReport
	if err := json.Unmarshal([]byte(raw[start:]), &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if report.Formulae == nil {
		return nil, fmt.Errorf("%w: missing formulae", ErrParseFailed)
	}
	if report.Casks == nil {
		return nil, fmt.Errorf("%w: missing casks", ErrParseFailed)
	}

	updates := make([]PackageUpdate, 0, len(*report.Formulae)+len(*report.Casks))

	for i, formula := range *report.Formulae {
		update, err := formula.toUpdate()
		if err != nil {
			return nil, fmt.Errorf("%w: formulae[%d]: %v", ErrParseFailed, i, err)
		}
		updates = append(updates, update)
	}

	for i, cask := range *report.Casks {
		update, err := cask.toUpdate()
		if err != nil {
			return nil, fmt.Errorf("%w: casks[%d]: %v", ErrParseFailed, i, err)
		}
		updates = append(updates, update)
	}

	return updates, nil
}

func (f outdatedFormula) toUpdate() (PackageUpdate, error) {
	if f.Name == nil {
		return PackageUpdate{}, fmt.Errorf("missing name")
	}
	versions, err := installedVersions(f.InstalledVersions)
	if err != nil {
		return PackageUpdate{}, err
	}
	if f.CurrentVersion == nil {
		return PackageUpdate{}, fmt.Errorf("missing current_version")
	}
	if f.Pinned == nil {
		return PackageUpdate{}, fmt.Errorf("missing pinned")
	}

	update := PackageUpdate{
		Name:              *f.Name,
		InstalledVersions: versions,
		CurrentVersion:    *f.CurrentVersion,
		Kind:              KindFormula,
		Pinned:            *f.Pinned,
	}
	if f.PinnedVersion != nil {
		pinned := *f.PinnedVersion
		update.PinnedVersion = &pinned
	}

	if err := update.Validate(); err != nil {
		return PackageUpdate{}, err
	}
	return update, nil
}

func (c outdatedCask) toUpdate() (PackageUpdate, error) {
	if c.Name == nil {
		return PackageUpdate{}, fmt.Errorf("missing name")
	}
	versions, err := installedVersions(c.InstalledVersions)
	if err != nil {
		return PackageUpdate{}, err
	}
	if c.CurrentVersion == nil {
		return PackageUpdate{}, fmt.Errorf("missing current_version")
	}

	update := PackageUpdate{
		Name:              *c.Name,
		InstalledVersions: versions,
		CurrentVersion:    *c.CurrentVersion,
		Kind:              KindCask,
	}

	if err := update.Validate(); err != nil {
		return PackageUpdate{}, err
	}
	return update, nil
}

// installedVersions copies the decoded version list, rejecting a missing
// list and null elements.
func installedVersions(raw *[]*string) ([]string, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing installed_versions")
	}
	versions := make([]string, 0, len(*raw))
	for i, v := range *raw {
		if v == nil {
			return nil, fmt.Errorf("installed_versions[%d] is null", i)
		}
		versions = append(versions, *v)
	}
	return versions, nil
}
