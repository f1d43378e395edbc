package process

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRunner creates a runner with short timeouts for testing.
func newTestRunner(t *testing.T, command string) *Runner {
	t.Helper()
	r := NewRunner("test", command, t.TempDir(), testLogger())
	r.gracefulTimeout = 100 * time.Millisecond
	r.killTimeout = 100 * time.Millisecond
	return r
}

func runAsync(r *Runner) <-chan int {
	done := make(chan int, 1)
	go func() {
		done <- r.Run()
	}()
	return done
}

func runWithRestartAsync(r *Runner) <-chan int {
	done := make(chan int, 1)
	go func() {
		done <- r.RunWithRestart()
	}()
	return done
}

func waitForExit(t *testing.T, done <-chan int, timeout time.Duration) int {
	t.Helper()
	select {
	case exitCode := <-done:
		return exitCode
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return -1
	}
}

func TestRunnerGracefulShutdown(t *testing.T) {
	// Process that handles SIGINT
	r := newTestRunner(t, `sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)
	r.gracefulTimeout = 500 * time.Millisecond

	done := runAsync(r)
	time.Sleep(100 * time.Millisecond)
	r.Shutdown()

	if exitCode := waitForExit(t, done, 1*time.Second); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
}

func TestRunnerForceKillOnTimeout(t *testing.T) {
	// Process that ignores SIGINT
	r := newTestRunner(t, `sh -c "trap '' INT; sleep 10"`)
	r.gracefulTimeout = 50 * time.Millisecond
	r.killTimeout = 50 * time.Millisecond

	done := runAsync(r)
	time.Sleep(50 * time.Millisecond)
	r.Shutdown()

	// Process was killed, expect 137 (128 + 9 for SIGKILL)
	if exitCode := waitForExit(t, done, 500*time.Millisecond); exitCode != 137 {
		t.Errorf("expected exit code 137, got %d", exitCode)
	}
}

func TestRunnerExitWithError(t *testing.T) {
	r := newTestRunner(t, "sh -c 'exit 42'")
	if exitCode := r.Run(); exitCode != 42 {
		t.Errorf("expected exit code 42, got %d", exitCode)
	}
}

func TestRunnerRunsInProjectDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRunner("test", `sh -c "test -f marker"`, dir, testLogger())
	r.gracefulTimeout = 100 * time.Millisecond
	r.killTimeout = 100 * time.Millisecond

	if exitCode := r.Run(); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
}

func TestRunnerRequestRestart(t *testing.T) {
	r := newTestRunner(t, "sleep 10")

	done := runWithRestartAsync(r)
	time.Sleep(100 * time.Millisecond)

	r.RequestRestart("echo restarted")
	time.Sleep(100 * time.Millisecond)

	if got := r.GetCommand(); got != "echo restarted" {
		t.Errorf("GetCommand() after restart = %q, want %q", got, "echo restarted")
	}

	r.Shutdown()
	waitForExit(t, done, 1*time.Second)
}

func TestRunnerRestartAlreadyPending(t *testing.T) {
	r := newTestRunner(t, "sleep 10")

	r.RequestRestart("echo first")
	r.RequestRestart("echo second") // Should be ignored

	if got := <-r.restartChan; got != "echo first" {
		t.Errorf("expected 'echo first', got %q", got)
	}
}

func TestRunnerInvalidCommand(t *testing.T) {
	r := newTestRunner(t, `echo "unclosed`)
	if exitCode := r.Run(); exitCode != 1 {
		t.Errorf("expected exit code 1 for parse error, got %d", exitCode)
	}
}

func TestRunnerEmptyCommand(t *testing.T) {
	r := newTestRunner(t, "")
	if exitCode := r.Run(); exitCode != 1 {
		t.Errorf("expected exit code 1 for empty command, got %d", exitCode)
	}
}

func TestRunnerShutdownBeforeStart(t *testing.T) {
	r := newTestRunner(t, "sleep 10")
	r.Shutdown() // Should not panic
}
