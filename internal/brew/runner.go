package brew

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Recommended per-call timeouts. Upgrades may compile from source or
// download large artifacts, so they get the longest budget.
const (
	QueryTimeout   = 120 * time.Second
	RefreshTimeout = 300 * time.Second
	UpgradeTimeout = 600 * time.Second
)

// defaultWaitDelay bounds how long Wait keeps reading output pipes after the
// process is gone, in case an orphaned grandchild still holds them open.
const defaultWaitDelay = 5 * time.Second

// Runner executes brew with a hard wall-clock deadline.
type Runner struct {
	logger    *zap.Logger
	waitDelay time.Duration
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:    logger,
		waitDelay: defaultWaitDelay,
	}
}

// Run executes path with args and waits for it to exit or for timeout to
// elapse, whichever happens first.
//
//   - empty path: NotFound, nothing is spawned
//   - exit status 0: stdout
//   - non-zero exit: ExecutionFailed with stderr, else stdout, else "Unknown error"
//   - spawn failure: ExecutionFailed with the OS error text
//   - deadline: the process tree is killed and TimedOut is returned
//
// A timeout <= 0 disables the deadline. Cancelling ctx kills the process
// too; a ctx deadline reports TimedOut, plain cancellation ExecutionFailed.
func (r *Runner) Run(ctx context.Context, path string, args []string, timeout time.Duration) (string, error) {
	if path == "" {
		return "", notFoundError(args)
	}

	//nolint:gosec // G204: intentionally executes the located brew binary
	cmd := exec.Command(path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay

	log := r.logger.With(zap.String("path", path), zap.Strings("args", args))
	log.Debug("starting command", zap.Duration("timeout", timeout))

	started := time.Now()
	if err := cmd.Start(); err != nil {
		log.Debug("command failed to start", zap.Error(err))
		return "", executionError(args, err.Error())
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	// A nil channel never fires, which is what "no deadline" means.
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case err := <-exited:
		log.Debug("command exited", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return commandResult(cmd, args, err, stdout.String(), stderr.String())

	case <-deadline:
		r.terminate(cmd.Process)
		<-exited
		log.Warn("command timed out", zap.Duration("timeout", timeout))
		return "", timedOutError(args)

	case <-ctx.Done():
		r.terminate(cmd.Process)
		<-exited
		log.Warn("command cancelled", zap.Error(ctx.Err()))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", timedOutError(args)
		}
		return "", executionError(args, ctx.Err().Error())
	}
}

// commandResult maps the Wait result to the runner's outcome.
func commandResult(cmd *exec.Cmd, args []string, waitErr error, stdout, stderr string) (string, error) {
	// Output pipes held open past WaitDelay do not change a clean exit.
	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		waitErr = nil
	}
	if waitErr == nil {
		return stdout, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = strings.TrimSpace(stdout)
		}
		return "", executionError(args, detail)
	}
	return "", executionError(args, waitErr.Error())
}

// terminate kills the process and every descendant it spawned. brew is a
// shell wrapper around ruby, so killing only the direct child would leave
// the real work running.
func (r *Runner) terminate(proc *os.Process) {
	if proc == nil {
		return
	}
	if p, err := process.NewProcess(int32(proc.Pid)); err == nil {
		killTree(p)
	}
	// Covers the case where gopsutil could not inspect the process.
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Debug("kill failed", zap.Int("pid", proc.Pid), zap.Error(err))
	}
}

// killTree collects the children before killing the parent so that
// re-parented orphans are still reachable.
func killTree(p *process.Process) {
	children, _ := p.Children()
	_ = p.Kill()
	for _, child := range children {
		killTree(child)
	}
}
