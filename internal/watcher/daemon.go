package watcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// stopTimeout is how long StopDaemon waits for SIGTERM to take effect
// before it kills the process.
const stopTimeout = 5 * time.Second

// StartDaemon starts the watcher as a background daemon process.
// It forks the current process, writes the PID to pidFile, and redirects logs to logFile.
func (w *Watcher) StartDaemon(pidFile, logFile string) error {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, w.childArgs...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := writePIDFile(pidFile, pid); err != nil {
		cmd.Process.Kill()
		return err
	}

	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release process: %w", err)
	}

	w.logger.Info("daemon started", zap.Int("pid", pid), zap.String("log", logFile))
	return nil
}

// Run starts the watcher and blocks until SIGTERM or SIGINT, or until ctx
// ends. SIGHUP runs an immediate check and SIGUSR1 re-reads the interval
// preference. pidFile, when set, is removed on the way out.
func (w *Watcher) Run(ctx context.Context, pidFile string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	return w.run(ctx, pidFile, sigCh)
}

// RunDaemon runs the watcher in daemon mode (called by daemon child process).
// The child records its own PID so that a restart without StartDaemon still
// leaves a usable PID file.
func (w *Watcher) RunDaemon(ctx context.Context, pidFile string) error {
	if err := writePIDFile(pidFile, os.Getpid()); err != nil {
		return err
	}
	return w.Run(ctx, pidFile)
}

func (w *Watcher) run(ctx context.Context, pidFile string, sigCh <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	refreshes := make(chan struct{}, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-refreshes:
				w.Refresh(ctx)
			}
		}
	}()
	requestRefresh := func() {
		select {
		case refreshes <- struct{}{}:
		default:
		}
	}

	if w.checkOnStart {
		requestRefresh()
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				w.logger.Info("manual refresh requested")
				requestRefresh()
				continue
			case syscall.SIGUSR1:
				w.ReloadPreferences()
				continue
			}
			w.logger.Info("shutting down", zap.Stringer("signal", sig))
			break loop
		}
	}

	// Cancel first so an in-flight brew process is killed.
	cancel()
	close(done)
	wg.Wait()
	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}

	if pidFile != "" {
		if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove PID file: %w", err)
		}
	}
	return nil
}

// StopDaemon sends SIGTERM to the daemon and waits for it to exit,
// killing it if it does not.
func StopDaemon(pidFile string) error {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return err
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		os.Remove(pidFile)
		return fmt.Errorf("daemon not running (stale PID %d)", pid)
	}

	if err := proc.Terminate(); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if running, _ := proc.IsRunning(); !running {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	os.Remove(pidFile)
	return nil
}

// NotifyDaemon asks a running daemon to re-read its preferences.
func NotifyDaemon(pidFile string) error {
	return signalDaemon(pidFile, syscall.SIGUSR1)
}

// RefreshDaemon asks a running daemon to check for updates now.
func RefreshDaemon(pidFile string) error {
	return signalDaemon(pidFile, syscall.SIGHUP)
}

func signalDaemon(pidFile string, sig syscall.Signal) error {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return err
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("daemon not running (stale PID %d)", pid)
	}
	if err := proc.SendSignal(sig); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}

// IsDaemonRunning checks if a daemon is running by checking the PID file.
// A PID file naming a dead process is removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		// Invalid PID file, consider daemon not running
		return false, nil
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		os.Remove(pidFile)
		return false, nil
	}
	return true, nil
}

// DaemonPID returns the PID recorded in pidFile.
func DaemonPID(pidFile string) (int, error) {
	return readPIDFile(pidFile)
}

func readPIDFile(pidFile string) (int, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("daemon not running (PID file not found)")
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

func writePIDFile(pidFile string, pid int) error {
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}
