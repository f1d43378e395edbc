package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/smazurov/projectnode/internal/events"
	"github.com/smazurov/projectnode/internal/projects"
)

// newTestSupervisor creates a supervisor with a "demo" project directory
// and short timeouts.
func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	root := t.TempDir()
	projectsDir := filepath.Join(root, "projects")
	if err := os.MkdirAll(filepath.Join(projectsDir, "demo"), 0o755); err != nil {
		t.Fatal(err)
	}

	store := projects.NewStore(projectsDir, filepath.Join(root, "templates"))
	return NewSupervisor(store, events.New(), Config{
		LogBufferSize: 50,
		GracePeriod:   100 * time.Millisecond,
	})
}

// waitDone waits for a record's exit observer, failing the test on timeout.
func waitDone(t *testing.T, rec *Record, timeout time.Duration) {
	t.Helper()
	select {
	case <-rec.Done():
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
	}
}

func TestStartCapturesOutputAndRemovesOnExit(t *testing.T) {
	s := newTestSupervisor(t)

	info, err := s.Start("demo", `sh -c "echo hello; echo oops >&2"`, nil)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if info.PID <= 0 {
		t.Errorf("Start() pid = %d", info.PID)
	}
	if info.Status != StatusRunning {
		t.Errorf("Start() status = %s, want %s", info.Status, StatusRunning)
	}

	rec, ok := s.registry.Get("demo")
	if !ok {
		t.Fatal("registry has no record after Start")
	}
	waitDone(t, rec, 2*time.Second)

	if s.IsRunning("demo") {
		t.Error("IsRunning(demo) = true after exit")
	}

	var sawStdout, sawStderr, sawExit bool
	for _, e := range rec.Buffer().Tail(0) {
		switch {
		case e.Stream == StreamStdout && e.Text == "hello":
			sawStdout = true
		case e.Stream == StreamStderr && e.Text == "oops":
			sawStderr = true
		case e.Stream == StreamSystem && strings.Contains(e.Text, "exited with code 0"):
			sawExit = true
		}
	}
	if !sawStdout || !sawStderr || !sawExit {
		t.Errorf("buffer missing entries: stdout=%v stderr=%v exit=%v", sawStdout, sawStderr, sawExit)
	}
}

func TestStartUnknownProject(t *testing.T) {
	s := newTestSupervisor(t)

	_, err := s.Start("missing", "sleep 1", nil)
	if projects.CodeOf(err) != projects.ErrCodeProjectNotFound {
		t.Errorf("Start(missing) = %v, want %s", err, projects.ErrCodeProjectNotFound)
	}
}

func TestStartInvalidName(t *testing.T) {
	s := newTestSupervisor(t)

	_, err := s.Start("../escape", "sleep 1", nil)
	if projects.CodeOf(err) != projects.ErrCodeInvalidName {
		t.Errorf("Start(../escape) = %v, want %s", err, projects.ErrCodeInvalidName)
	}
}

func TestStartDuplicate(t *testing.T) {
	s := newTestSupervisor(t)

	if _, err := s.Start("demo", "sleep 10", nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	_, err := s.Start("demo", "sleep 10", nil)
	if projects.CodeOf(err) != projects.ErrCodeAlreadyRunning {
		t.Errorf("second Start() = %v, want %s", err, projects.ErrCodeAlreadyRunning)
	}

	rec, _ := s.registry.Get("demo")
	if _, err := s.Stop("demo"); err != nil {
		t.Fatal(err)
	}
	waitDone(t, rec, 2*time.Second)
}

func TestStartRequiresManifestForPackageManagers(t *testing.T) {
	s := newTestSupervisor(t)

	_, err := s.Start("demo", "npm start", nil)
	if projects.CodeOf(err) != projects.ErrCodeManifestNotFound {
		t.Errorf("Start(npm) = %v, want %s", err, projects.ErrCodeManifestNotFound)
	}
}

func TestStartDefaultCommandNeedsManifest(t *testing.T) {
	s := newTestSupervisor(t)

	// Empty command falls back to "npm start", which requires package.json
	_, err := s.Start("demo", "", nil)
	if projects.CodeOf(err) != projects.ErrCodeManifestNotFound {
		t.Errorf("Start with default command = %v, want %s", err, projects.ErrCodeManifestNotFound)
	}
}

func TestStartSpawnFailureRollsBackReservation(t *testing.T) {
	s := newTestSupervisor(t)

	_, err := s.Start("demo", "/nonexistent/command/that/does/not/exist", nil)
	if projects.CodeOf(err) != projects.ErrCodeSpawnFailed {
		t.Fatalf("Start() = %v, want %s", err, projects.ErrCodeSpawnFailed)
	}
	if s.IsRunning("demo") {
		t.Error("reservation not rolled back after spawn failure")
	}

	// The name must be reusable immediately
	if _, err := s.Start("demo", "true", nil); err != nil {
		t.Errorf("Start() after rollback error: %v", err)
	}
}

func TestStopGraceful(t *testing.T) {
	s := newTestSupervisor(t)

	if _, err := s.Start("demo", `sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec, _ := s.registry.Get("demo")

	time.Sleep(100 * time.Millisecond)
	if _, err := s.Stop("demo"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	waitDone(t, rec, 2*time.Second)

	if s.IsRunning("demo") {
		t.Error("IsRunning(demo) = true after stop")
	}

	var sawStopNote bool
	for _, e := range rec.Buffer().Tail(0) {
		if e.Stream == StreamSystem && strings.Contains(e.Text, "SIGINT") {
			sawStopNote = true
		}
	}
	if !sawStopNote {
		t.Error("buffer missing stop system entry")
	}
}

func TestStopEscalatesToSigkill(t *testing.T) {
	s := newTestSupervisor(t)

	exitCodes := make(chan int, 1)
	unsub := s.bus.Subscribe(func(e events.ProcessExitedEvent) {
		exitCodes <- e.ExitCode
	})
	defer unsub()

	if _, err := s.Start("demo", `sh -c "trap '' INT TERM; while :; do sleep 0.1; done"`, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec, _ := s.registry.Get("demo")

	time.Sleep(100 * time.Millisecond)
	if _, err := s.Stop("demo"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	waitDone(t, rec, 3*time.Second)

	select {
	case code := <-exitCodes:
		if code != 137 {
			t.Errorf("exit code = %d, want 137", code)
		}
	case <-time.After(time.Second):
		t.Fatal("no exit event received")
	}

	var sawKillNote bool
	for _, e := range rec.Buffer().Tail(0) {
		if e.Stream == StreamSystem && strings.Contains(e.Text, "SIGKILL") {
			sawKillNote = true
		}
	}
	if !sawKillNote {
		t.Error("buffer missing kill system entry")
	}
}

func TestStopNotRunning(t *testing.T) {
	s := newTestSupervisor(t)

	_, err := s.Stop("demo")
	if projects.CodeOf(err) != projects.ErrCodeNotRunning {
		t.Errorf("Stop() = %v, want %s", err, projects.ErrCodeNotRunning)
	}
}

func TestStopEntryVisibleUntilExit(t *testing.T) {
	s := newTestSupervisor(t)

	// Ignores SIGINT, so the entry stays in stopping state until SIGKILL
	if _, err := s.Start("demo", `sh -c "trap '' INT TERM; while :; do sleep 0.1; done"`, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec, _ := s.registry.Get("demo")

	time.Sleep(100 * time.Millisecond)
	if _, err := s.Stop("demo"); err != nil {
		t.Fatal(err)
	}

	infos := s.ListRunning()
	if len(infos) != 1 || infos[0].Status != StatusStopping {
		t.Errorf("ListRunning() = %+v, want one stopping entry", infos)
	}

	waitDone(t, rec, 3*time.Second)
	if len(s.ListRunning()) != 0 {
		t.Error("ListRunning() not empty after exit")
	}
}

func TestLogsLimit(t *testing.T) {
	s := newTestSupervisor(t)

	if _, err := s.Start("demo", `sh -c "echo 1; echo 2; echo 3; sleep 10"`, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec, _ := s.registry.Get("demo")

	// Output arrives asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := s.Logs("demo", 0)
		if err != nil {
			t.Fatalf("Logs() error: %v", err)
		}
		if len(entries) >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for output, have %d entries", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}

	tail, err := s.Logs("demo", 2)
	if err != nil {
		t.Fatalf("Logs() error: %v", err)
	}
	if len(tail) != 2 {
		t.Errorf("Logs(demo, 2) returned %d entries", len(tail))
	}

	if _, err := s.Stop("demo"); err != nil {
		t.Fatal(err)
	}
	waitDone(t, rec, 2*time.Second)

	if _, err := s.Logs("demo", 0); projects.CodeOf(err) != projects.ErrCodeNotRunning {
		t.Errorf("Logs() after exit = %v, want %s", err, projects.ErrCodeNotRunning)
	}
}

func TestStopAll(t *testing.T) {
	s := newTestSupervisor(t)

	for _, name := range []string{"demo", "other"} {
		if err := os.MkdirAll(filepath.Join(s.store.ProjectsDir(), name), 0o755); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Start(name, `sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`, nil); err != nil {
			t.Fatalf("Start(%s) error: %v", name, err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	s.StopAll(3 * time.Second)

	if n := len(s.ListRunning()); n != 0 {
		t.Errorf("ListRunning() has %d entries after StopAll", n)
	}
}

func TestStartAppendsExtraArgs(t *testing.T) {
	s := newTestSupervisor(t)

	info, err := s.Start("demo", "sleep", []string{"5"})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if info.Command != "sleep" {
		t.Errorf("Info.Command = %q, want sleep", info.Command)
	}
	if len(info.Args) != 1 || info.Args[0] != "5" {
		t.Errorf("Info.Args = %v, want [5]", info.Args)
	}
	if info.Path == "" {
		t.Error("Info.Path is empty")
	}

	rec, _ := s.registry.Get("demo")
	stopInfo, err := s.Stop("demo")
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if stopInfo.PID != info.PID {
		t.Errorf("Stop() pid = %d, want %d", stopInfo.PID, info.PID)
	}
	if stopInfo.Status != StatusStopping {
		t.Errorf("Stop() status = %s, want %s", stopInfo.Status, StatusStopping)
	}
	waitDone(t, rec, 2*time.Second)
}

func TestStopBeforeSpawnCompletes(t *testing.T) {
	s := newTestSupervisor(t)

	// A name is visible in the registry from the reservation on, before the
	// spawn has assigned cmd. Stop in that window must not crash.
	rec := &Record{
		Name:      "demo",
		Command:   "sleep 1",
		StartedAt: time.Now(),
		status:    StatusRunning,
		done:      make(chan struct{}),
		buffer:    NewBuffer(10),
	}
	if err := s.registry.Reserve(rec); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	defer s.registry.Remove("demo")

	_, err := s.Stop("demo")
	if projects.CodeOf(err) != projects.ErrCodeNotRunning {
		t.Errorf("Stop() before spawn finished = %v, want %s", err, projects.ErrCodeNotRunning)
	}
}

func TestStopSignalsWholeProcessGroup(t *testing.T) {
	s := newTestSupervisor(t)

	// The shell backgrounds a sleep and records its pid; the stop signal must
	// reach that grandchild via the process group, not just the shell.
	pidFile := filepath.Join(s.store.ProjectsDir(), "demo", "child.pid")
	if _, err := s.Start("demo", `sh -c "sleep 30 & echo $! > child.pid; trap 'exit 0' INT TERM; wait"`, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec, _ := s.registry.Get("demo")

	var childPID int
	deadline := time.Now().Add(2 * time.Second)
	for childPID == 0 {
		if data, err := os.ReadFile(pidFile); err == nil {
			if pid, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && pid > 0 {
				childPID = pid
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for child pid file")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := s.Stop("demo"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	waitDone(t, rec, 3*time.Second)

	deadline = time.Now().Add(2 * time.Second)
	for syscall.Kill(childPID, 0) == nil {
		if time.Now().After(deadline) {
			t.Fatalf("background child %d survived stop", childPID)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartRejectsMalformedCommand(t *testing.T) {
	s := newTestSupervisor(t)

	if _, err := s.Start("demo", `sh -c "unterminated`, nil); projects.CodeOf(err) != projects.ErrCodeInvalidCommand {
		t.Errorf("Start(unterminated quote) = %v, want %s", err, projects.ErrCodeInvalidCommand)
	}
	if _, err := s.Start("demo", "echo", []string{""}); projects.CodeOf(err) != projects.ErrCodeInvalidCommand {
		t.Errorf("Start(empty arg) = %v, want %s", err, projects.ErrCodeInvalidCommand)
	}
	if s.IsRunning("demo") {
		t.Error("rejected start left a registry entry")
	}
}
