package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func init() {
	output.SetColor(false)
}

const outdatedJSON = `{"formulae":[{"name":"wget","installed_versions":["1.21"],"current_version":"1.24","pinned":false,"pinned_version":null}],"casks":[{"name":"firefox","installed_versions":["118.0"],"current_version":"120.0"}]}`

// testEnv is an isolated home directory with a scripted brew.
type testEnv struct {
	home    string
	brew    string
	argsLog string
	db      string
	config  string
}

// setupTestEnv points HOME at a temp dir and installs a fake brew that
// logs its arguments. Upgrading a package named "broken" fails.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	env := &testEnv{
		home:    home,
		brew:    filepath.Join(home, "bin", "brew"),
		argsLog: filepath.Join(home, "brew-args.log"),
		db:      filepath.Join(home, "data", "brewster.db"),
		config:  filepath.Join(home, "config.yaml"),
	}

	script := fmt.Sprintf(`#!/bin/sh
echo "$*" >> %q
case "$1" in
  outdated)
    if [ "$2" = "--json" ]; then
      printf '%%s\n' '%s'
    else
      printf 'wget (1.21) < 1.24\nfirefox (118.0) != 120.0\n'
    fi
    ;;
  upgrade)
    if [ "$2" = "broken" ]; then
      echo "Error: No available formula with the name \"broken\"." >&2
      exit 1
    fi
    ;;
esac
exit 0
`, env.argsLog, outdatedJSON)

	if err := os.MkdirAll(filepath.Dir(env.brew), 0755); err != nil {
		t.Fatalf("setupTestEnv: %v", err)
	}
	if err := os.WriteFile(env.brew, []byte(script), 0755); err != nil {
		t.Fatalf("setupTestEnv: write brew: %v", err)
	}

	cfg := fmt.Sprintf("brew:\n  search-paths:\n    - %s\nlog:\n  level: error\n", env.brew)
	if err := os.WriteFile(env.config, []byte(cfg), 0644); err != nil {
		t.Fatalf("setupTestEnv: write config: %v", err)
	}

	resetFlags()
	t.Cleanup(resetFlags)
	return env
}

// resetFlags restores every flag to its default so commands can run more
// than once per process.
func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(RootCmd.PersistentFlags())
	for _, c := range RootCmd.Commands() {
		reset(c.Flags())
	}
}

// run executes the root command with args plus the environment's --db and
// --config flags, returning stdout and stderr.
func (e *testEnv) run(args ...string) (string, string, error) {
	resetFlags()

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(append(args, "--db", e.db, "--config", e.config))
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// brewCalls returns the argument lists the fake brew was invoked with.
func (e *testEnv) brewCalls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.argsLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read brew log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// openStore opens the environment's database after a command has closed it.
func (e *testEnv) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(e.db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func findCommand(name string) *cobra.Command {
	for _, c := range RootCmd.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
