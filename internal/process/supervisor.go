package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/projectnode/internal/events"
	"github.com/smazurov/projectnode/internal/logging"
	"github.com/smazurov/projectnode/internal/metrics"
	"github.com/smazurov/projectnode/internal/projects"
)

// DefaultGracePeriod is how long a stopped process gets between SIGINT
// and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// DefaultCommand is used when a start request omits the command.
const DefaultCommand = "npm start"

// Config tunes supervisor behavior.
type Config struct {
	LogBufferSize  int
	GracePeriod    time.Duration
	DefaultCommand string
}

// Supervisor spawns project processes, tracks them in a registry, and
// captures their output into per-process log buffers.
type Supervisor struct {
	store    *projects.Store
	registry *Registry
	bus      *events.Bus
	logger   logging.Logger
	cfg      Config
}

// NewSupervisor creates a supervisor backed by the given project store.
// A nil bus disables event publishing.
func NewSupervisor(store *projects.Store, bus *events.Bus, cfg Config) *Supervisor {
	if cfg.LogBufferSize <= 0 {
		cfg.LogBufferSize = DefaultLogBufferSize
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.DefaultCommand == "" {
		cfg.DefaultCommand = DefaultCommand
	}
	return &Supervisor{
		store:    store,
		registry: NewRegistry(),
		bus:      bus,
		logger:   logging.GetLogger("process"),
		cfg:      cfg,
	}
}

// Start spawns a process for the named project. An empty command falls back
// to the configured default; extraArgs are appended to the parsed command.
// The returned Info is a snapshot taken right after the spawn.
func (s *Supervisor) Start(name, command string, extraArgs []string) (*Info, error) {
	if err := projects.ValidateName(name); err != nil {
		return nil, err
	}

	projectPath, err := s.store.ProjectPath(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(projectPath); err != nil {
		return nil, projects.NewError(projects.ErrCodeProjectNotFound, "project "+name+" does not exist", err)
	}

	if command == "" {
		command = s.cfg.DefaultCommand
	}

	args, err := ParseCommand(command)
	if err != nil {
		return nil, projects.NewError(projects.ErrCodeInvalidCommand, "invalid command", err)
	}
	if len(args) == 0 {
		return nil, projects.NewError(projects.ErrCodeInvalidCommand, "empty command", nil)
	}
	for _, arg := range extraArgs {
		if arg == "" {
			return nil, projects.NewError(projects.ErrCodeInvalidCommand, "empty argument", nil)
		}
	}
	args = append(args, extraArgs...)

	if NeedsManifest(args[0]) {
		if _, err := os.Stat(filepath.Join(projectPath, ManifestFile)); err != nil {
			return nil, projects.NewError(projects.ErrCodeManifestNotFound,
				fmt.Sprintf("%s requires %s in the project directory", args[0], ManifestFile), err)
		}
	}

	rec := &Record{
		Name:      name,
		Command:   command,
		Args:      extraArgs,
		Path:      projectPath,
		StartedAt: time.Now(),
		status:    StatusRunning,
		done:      make(chan struct{}),
		buffer:    NewBuffer(s.cfg.LogBufferSize),
	}

	// Reserve the name before spawning so concurrent starts cannot race.
	if err := s.registry.Reserve(rec); err != nil {
		return nil, err
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = projectPath
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.registry.Remove(name)
		return nil, projects.NewError(projects.ErrCodeSpawnFailed, "failed to create stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.registry.Remove(name)
		return nil, projects.NewError(projects.ErrCodeSpawnFailed, "failed to create stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		// Roll back the reservation so the name is free again.
		s.registry.Remove(name)
		return nil, projects.NewError(projects.ErrCodeSpawnFailed, "failed to start "+command, err)
	}

	rec.mu.Lock()
	rec.cmd = cmd
	rec.PID = cmd.Process.Pid
	rec.mu.Unlock()

	s.logger.Info("Process started", "project", name, "pid", cmd.Process.Pid, "command", command)

	var readers sync.WaitGroup
	readers.Add(2)
	go s.captureOutput(rec, stdout, StreamStdout, os.Stdout, &readers)
	go s.captureOutput(rec, stderr, StreamStderr, os.Stderr, &readers)

	go s.observeExit(rec, cmd, &readers)

	metrics.IncStarts()
	metrics.SetRunning(s.registry.Len())
	s.publish(events.ProcessStartedEvent{
		Name:      name,
		PID:       cmd.Process.Pid,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	info := rec.Info()
	return &info, nil
}

// Stop requests termination of a running process. SIGINT is sent to its
// process group; a kill timer escalates to SIGKILL after the grace period
// unless the exit observer cancels it first. The registry entry survives
// until the process actually exits. Returns a snapshot taken after the
// status change.
func (s *Supervisor) Stop(name string) (*Info, error) {
	if err := projects.ValidateName(name); err != nil {
		return nil, err
	}

	rec, ok := s.registry.Get(name)
	if !ok {
		return nil, projects.NewError(projects.ErrCodeNotRunning, "project "+name+" is not running", nil)
	}

	rec.mu.Lock()
	// A reserved name whose spawn has not finished yet has no cmd. Treat it
	// as not running rather than dereferencing a nil process.
	if rec.cmd == nil || rec.cmd.Process == nil {
		rec.mu.Unlock()
		return nil, projects.NewError(projects.ErrCodeNotRunning, "project "+name+" is not running", nil)
	}
	rec.status = StatusStopping
	pid := rec.PID
	rec.mu.Unlock()

	rec.buffer.System("stop requested, sending SIGINT")
	s.logger.Info("Stopping process", "project", name, "pid", pid)

	if err := signalGroup(pid, syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return nil, projects.NewError(projects.ErrCodeSignalFailed, "failed to signal process", err)
	}

	rec.mu.Lock()
	if rec.killTimer == nil {
		rec.killTimer = time.AfterFunc(s.cfg.GracePeriod, func() {
			s.forceKill(rec)
		})
	}
	rec.mu.Unlock()

	metrics.IncStopRequests()
	s.publish(events.ProcessStopRequestedEvent{
		Name:      name,
		PID:       pid,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	info := rec.Info()
	return &info, nil
}

// StopAll stops every tracked process and waits up to timeout for the exit
// observers to confirm termination.
func (s *Supervisor) StopAll(timeout time.Duration) {
	records := s.registry.List()
	if len(records) == 0 {
		return
	}

	s.logger.Info("Stopping all processes", "count", len(records))
	for _, rec := range records {
		if _, err := s.Stop(rec.Name); err != nil {
			s.logger.Warn("Failed to stop process", "project", rec.Name, "error", err)
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for _, rec := range records {
		select {
		case <-rec.Done():
		case <-deadline.C:
			s.logger.Warn("Timeout waiting for processes to stop")
			return
		}
	}
}

// ListRunning returns snapshots of all tracked processes sorted by name.
func (s *Supervisor) ListRunning() []Info {
	records := s.registry.List()
	infos := make([]Info, 0, len(records))
	for _, rec := range records {
		infos = append(infos, rec.Info())
	}
	return infos
}

// IsRunning reports whether the named project is tracked.
func (s *Supervisor) IsRunning(name string) bool {
	_, ok := s.registry.Get(name)
	return ok
}

// Logs returns the most recent captured log entries for a running project.
func (s *Supervisor) Logs(name string, limit int) ([]Entry, error) {
	if err := projects.ValidateName(name); err != nil {
		return nil, err
	}
	rec, ok := s.registry.Get(name)
	if !ok {
		return nil, projects.NewError(projects.ErrCodeNotRunning, "project "+name+" is not running", nil)
	}
	return rec.buffer.Tail(limit), nil
}

// captureOutput reads one stream line by line, appending to the process
// buffer and echoing to the controller's own stream.
func (s *Supervisor) captureOutput(rec *Record, reader io.Reader, stream Stream, echo io.Writer, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		rec.buffer.Append(stream, line)
		metrics.IncLogLines(rec.Name, string(stream))
		fmt.Fprintf(echo, "[%s] %s\n", rec.Name, line)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("Error reading output", "project", rec.Name, "stream", stream, "error", err)
	}
}

// observeExit waits for the process to terminate, then removes it from the
// registry. This is the only removal path after a successful spawn.
func (s *Supervisor) observeExit(rec *Record, cmd *exec.Cmd, readers *sync.WaitGroup) {
	// Drain both pipes before Wait closes them.
	readers.Wait()
	err := cmd.Wait()
	exitCode := exitCodeFromError(err)

	rec.stopKillTimer()
	rec.buffer.System(fmt.Sprintf("process exited with code %d", exitCode))

	s.registry.Remove(rec.Name)
	metrics.SetRunning(s.registry.Len())
	metrics.IncExits(exitCode)
	metrics.DeleteLogLines(rec.Name)

	s.logger.Info("Process exited", "project", rec.Name, "pid", rec.PID, "exit_code", exitCode)
	s.publish(events.ProcessExitedEvent{
		Name:      rec.Name,
		PID:       rec.PID,
		ExitCode:  exitCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	close(rec.done)
}

// forceKill escalates to SIGKILL after the grace period elapses.
func (s *Supervisor) forceKill(rec *Record) {
	rec.mu.Lock()
	pid := rec.PID
	spawned := rec.cmd != nil && rec.cmd.Process != nil
	rec.mu.Unlock()
	if !spawned {
		return
	}

	rec.buffer.System("grace period elapsed, sending SIGKILL")
	s.logger.Warn("Graceful shutdown timeout, forcing kill", "project", rec.Name, "pid", pid)

	if err := signalGroup(pid, syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		// os.ErrProcessDone means the group exited between timeout and kill
		s.logger.Error("Failed to kill process", "project", rec.Name, "error", err)
	}
}

// signalGroup delivers sig to the whole process group led by pid. Children
// are spawned with Setpgid, so descendants of the launch command (npm's
// node server, shell subprocesses) receive the signal too.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}

func (s *Supervisor) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// exitCodeFromError extracts the exit code from a Wait error.
// Signal-terminated processes report 128 plus the signal number.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
