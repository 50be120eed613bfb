package brew

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const sampleReport = `{
  "formulae": [
    {
      "name": "git",
      "installed_versions": ["2.40.0"],
      "current_version": "2.41.0",
      "pinned": false,
      "pinned_version": null
    },
    {
      "name": "python@3.12",
      "installed_versions": ["3.12.0", "3.12.1"],
      "current_version": "3.12.2",
      "pinned": false,
      "pinned_version": null
    }
  ],
  "casks": [
    {
      "name": "visual-studio-code",
      "installed_versions": ["1.78.0"],
      "current_version": "1.79.0"
    }
  ]
}`

func TestParseOutdated_FormulaeThenCasks(t *testing.T) {
	updates, err := ParseOutdated(sampleReport)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}

	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}

	wantNames := []string{"git", "python@3.12", "visual-studio-code"}
	wantKinds := []Kind{KindFormula, KindFormula, KindCask}
	for i, u := range updates {
		if u.Name != wantNames[i] {
			t.Errorf("updates[%d].Name = %s, want %s", i, u.Name, wantNames[i])
		}
		if u.Kind != wantKinds[i] {
			t.Errorf("updates[%d].Kind = %v, want %v", i, u.Kind, wantKinds[i])
		}
	}

	if got := updates[1].InstalledVersions; len(got) != 2 || got[0] != "3.12.0" || got[1] != "3.12.1" {
		t.Errorf("python installed versions = %v, want [3.12.0 3.12.1]", got)
	}
	if updates[2].Pinned || updates[2].PinnedVersion != nil {
		t.Error("cask should never carry pin information")
	}
}

func TestParseOutdated_EndToEndDisplayLine(t *testing.T) {
	raw := `{"formulae":[{"name":"git","installed_versions":["2.40.0"],"current_version":"2.41.0","pinned":false,"pinned_version":null}],"casks":[]}`

	updates, err := ParseOutdated(raw)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if got, want := updates[0].DisplayLine(), "git (2.40.0) < 2.41.0"; got != want {
		t.Errorf("DisplayLine() = %q, want %q", got, want)
	}
}

func TestParseOutdated_LeadingNoise(t *testing.T) {
	clean, err := ParseOutdated(sampleReport)
	if err != nil {
		t.Fatalf("ParseOutdated(clean) error = %v", err)
	}

	noisy := "Warning: Some installed formulae are deprecated.\n==> Auto-updating Homebrew...\n" + sampleReport
	updates, err := ParseOutdated(noisy)
	if err != nil {
		t.Fatalf("ParseOutdated(noisy) error = %v", err)
	}

	if len(updates) != len(clean) {
		t.Fatalf("noisy parse returned %d updates, clean returned %d", len(updates), len(clean))
	}
	for i := range clean {
		if updates[i].DisplayLine() != clean[i].DisplayLine() {
			t.Errorf("updates[%d] = %q, want %q", i, updates[i].DisplayLine(), clean[i].DisplayLine())
		}
	}
}

func TestParseOutdated_PinnedFormula(t *testing.T) {
	raw := `{
		"formulae": [
			{"name": "node", "installed_versions": ["18.0.0"], "current_version": "20.0.0", "pinned": true, "pinned_version": "18.0.0"},
			{"name": "go", "installed_versions": ["1.21.0"], "current_version": "1.22.0", "pinned": false, "pinned_version": null}
		],
		"casks": []
	}`

	updates, err := ParseOutdated(raw)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}

	node := updates[0]
	if !node.Pinned {
		t.Error("node should be pinned")
	}
	if node.PinnedVersion == nil || *node.PinnedVersion != "18.0.0" {
		t.Errorf("node.PinnedVersion = %v, want 18.0.0", node.PinnedVersion)
	}

	goUpdate := updates[1]
	if goUpdate.Pinned {
		t.Error("go should not be pinned")
	}
	if goUpdate.PinnedVersion != nil {
		t.Errorf("go.PinnedVersion = %q, want nil", *goUpdate.PinnedVersion)
	}
}

func TestParseOutdated_PinnedVersionKeyOptional(t *testing.T) {
	raw := `{"formulae":[{"name":"wget","installed_versions":["1.21"],"current_version":"1.24","pinned":false}],"casks":[]}`

	updates, err := ParseOutdated(raw)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	if updates[0].PinnedVersion != nil {
		t.Error("PinnedVersion should be nil when the key is absent")
	}
}

func TestParseOutdated_Empty(t *testing.T) {
	updates, err := ParseOutdated(`{"formulae": [], "casks": []}`)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected no updates, got %d", len(updates))
	}
}

func TestParseOutdated_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no opening brace", "Error: no JSON here"},
		{"empty input", ""},
		{"not json", "{not valid json"},
		{"truncated", `{"formulae": [{"name": "git",`},
		{"missing casks", `{"formulae": []}`},
		{"missing formulae", `{"casks": []}`},
		{"null casks", `{"formulae": [], "casks": null}`},
		{"formula missing fields", `{"formulae": [{"name": "git"}], "casks": []}`},
		{"formula missing pinned", `{"formulae": [{"name": "git", "installed_versions": ["1"], "current_version": "2"}], "casks": []}`},
		{"formula pinned wrong type", `{"formulae": [{"name": "git", "installed_versions": ["1"], "current_version": "2", "pinned": "no"}], "casks": []}`},
		{"versions not an array", `{"formulae": [], "casks": [{"name": "zoom", "installed_versions": "5.0", "current_version": "5.1"}]}`},
		{"null version element", `{"formulae": [], "casks": [{"name": "zoom", "installed_versions": [null], "current_version": "5.1"}]}`},
		{"cask missing current", `{"formulae": [], "casks": [{"name": "zoom", "installed_versions": ["5.0"]}]}`},
		{"empty installed versions", `{"formulae": [], "casks": [{"name": "zoom", "installed_versions": [], "current_version": "5.1"}]}`},
		{"empty name", `{"formulae": [], "casks": [{"name": "", "installed_versions": ["1"], "current_version": "2"}]}`},
		{"pinned without version", `{"formulae": [{"name": "git", "installed_versions": ["1"], "current_version": "2", "pinned": true, "pinned_version": null}], "casks": []}`},
		{"trailing garbage", `{"formulae": [], "casks": []} trailing`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, err := ParseOutdated(tt.raw)
			if err == nil {
				t.Fatalf("ParseOutdated() = %v, want error", updates)
			}
			if !errors.Is(err, ErrParseFailed) {
				t.Errorf("error = %v, want errors.Is(err, ErrParseFailed)", err)
			}
			if updates != nil {
				t.Errorf("expected nil updates on failure, got %d", len(updates))
			}
		})
	}
}

func TestParseOutdated_OneBadEntryFailsWholeReport(t *testing.T) {
	raw := `{
		"formulae": [
			{"name": "git", "installed_versions": ["2.40.0"], "current_version": "2.41.0", "pinned": false, "pinned_version": null},
			{"name": "broken"}
		],
		"casks": [
			{"name": "firefox", "installed_versions": ["119.0"], "current_version": "120.0"}
		]
	}`

	updates, err := ParseOutdated(raw)
	if err == nil {
		t.Fatalf("expected failure, got %d updates", len(updates))
	}
	if !strings.Contains(err.Error(), "formulae[1]") {
		t.Errorf("error %q should point at the offending entry", err)
	}
}

func TestParseOutdated_LargeReport(t *testing.T) {
	const formulaCount, caskCount = 100, 25

	var formulae, casks []string
	for i := 0; i < formulaCount; i++ {
		formulae = append(formulae, fmt.Sprintf(
			`{"name":"package%d","installed_versions":["1.0.%d"],"current_version":"2.0.%d","pinned":false,"pinned_version":null}`, i, i, i))
	}
	for i := 0; i < caskCount; i++ {
		casks = append(casks, fmt.Sprintf(
			`{"name":"app%d","installed_versions":["1.%d"],"current_version":"2.%d"}`, i, i, i))
	}
	raw := fmt.Sprintf(`{"formulae":[%s],"casks":[%s]}`, strings.Join(formulae, ","), strings.Join(casks, ","))

	updates, err := ParseOutdated(raw)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	if len(updates) != formulaCount+caskCount {
		t.Fatalf("expected %d updates, got %d", formulaCount+caskCount, len(updates))
	}
	for i := 0; i < formulaCount; i++ {
		if want := fmt.Sprintf("package%d", i); updates[i].Name != want || updates[i].IsCask() {
			t.Errorf("updates[%d] = %s (cask=%v), want formula %s", i, updates[i].Name, updates[i].IsCask(), want)
		}
	}
	for i := 0; i < caskCount; i++ {
		u := updates[formulaCount+i]
		if want := fmt.Sprintf("app%d", i); u.Name != want || !u.IsCask() {
			t.Errorf("updates[%d] = %s (cask=%v), want cask %s", formulaCount+i, u.Name, u.IsCask(), want)
		}
	}
}

func TestParseOutdated_SpecialCharacters(t *testing.T) {
	raw := `{"formulae":[{"name":"package@1.0","installed_versions":["1.0.0-beta"],"current_version":"1.0.0+build.123","pinned":false,"pinned_version":null}],"casks":[]}`

	updates, err := ParseOutdated(raw)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	u := updates[0]
	if u.Name != "package@1.0" || u.InstalledVersions[0] != "1.0.0-beta" || u.CurrentVersion != "1.0.0+build.123" {
		t.Errorf("unexpected decode: %+v", u)
	}
}

func TestParseOutdated_FreshSlices(t *testing.T) {
	first, err := ParseOutdated(sampleReport)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}
	second, err := ParseOutdated(sampleReport)
	if err != nil {
		t.Fatalf("ParseOutdated() error = %v", err)
	}

	first[0].InstalledVersions[0] = "mutated"
	if second[0].InstalledVersions[0] != "2.40.0" {
		t.Error("separate parses must not share backing arrays")
	}
}
