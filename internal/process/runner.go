package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/projectnode/internal/logging"
)

type exitReason int

const (
	exitReasonProcessExit exitReason = iota
	exitReasonShutdown
	exitReasonRestart
)

// Runner runs a single project process in the foreground, tied to the
// terminal. Used by the run command; the HTTP API uses the Supervisor
// instead.
type Runner struct {
	name            string
	command         string
	commandMu       sync.RWMutex
	dir             string
	cmd             *exec.Cmd
	logger          logging.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	restartChan     chan string
	gracefulTimeout time.Duration
	killTimeout     time.Duration
}

// NewRunner creates a foreground runner for a project directory.
func NewRunner(name, command, dir string, logger logging.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		name:            name,
		command:         command,
		dir:             dir,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		restartChan:     make(chan string, 1),
		gracefulTimeout: DefaultGracePeriod,
		killTimeout:     5 * time.Second,
	}
}

// GetCommand returns the current command string.
func (r *Runner) GetCommand() string {
	r.commandMu.RLock()
	defer r.commandMu.RUnlock()
	return r.command
}

// RequestRestart requests a restart with a new command.
// Non-blocking: if a restart is already pending, this is a no-op.
func (r *Runner) RequestRestart(newCommand string) {
	select {
	case r.restartChan <- newCommand:
		r.logger.Info("Restart requested")
	default:
		r.logger.Warn("Restart already pending, ignoring")
	}
}

// Shutdown triggers a graceful shutdown of the process.
func (r *Runner) Shutdown() {
	r.cancel()
}

// runningChild holds channels for monitoring a spawned child.
type runningChild struct {
	processDone <-chan error
	outputDone  chan struct{} // receives twice, once per output stream
}

func (r *Runner) startChild(command string) (*runningChild, error) {
	args, err := ParseCommand(command)
	if err != nil {
		r.logger.Error("Failed to parse command", "error", err)
		return nil, err
	}
	if len(args) == 0 {
		r.logger.Error("Empty command")
		return nil, fmt.Errorf("empty command")
	}

	r.cmd = exec.Command(args[0], args[1:]...)
	r.cmd.Dir = r.dir
	r.cmd.Env = os.Environ()
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		r.logger.Error("Failed to create stdout pipe", "error", err)
		return nil, err
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		r.logger.Error("Failed to create stderr pipe", "error", err)
		return nil, err
	}

	if err := r.cmd.Start(); err != nil {
		r.logger.Error("Failed to start process", "error", err, "command", command)
		return nil, err
	}

	r.logger.Info("Process started", "project", r.name, "pid", r.cmd.Process.Pid, "command", command)

	outputDone := make(chan struct{}, 2)
	go func() {
		r.echoOutput(stdout, os.Stdout)
		outputDone <- struct{}{}
	}()
	go func() {
		r.echoOutput(stderr, os.Stderr)
		outputDone <- struct{}{}
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- r.cmd.Wait()
	}()

	return &runningChild{processDone: processDone, outputDone: outputDone}, nil
}

func (r *Runner) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// Run starts the child and blocks until it exits or receives a signal.
// Returns the exit code of the child.
func (r *Runner) Run() int {
	rc, err := r.startChild(r.GetCommand())
	if err != nil {
		return 1
	}
	defer r.waitOutputDone(rc.outputDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-r.ctx.Done():
		r.logger.Info("Context cancelled, shutting down process")
		r.sendStopSignal()
		return r.waitForExit(rc.processDone, r.gracefulTimeout)
	case sig := <-sigChan:
		r.logger.Info("Received shutdown signal", "signal", sig.String())
		r.sendStopSignal()
		return r.waitForExit(rc.processDone, r.gracefulTimeout)
	case processErr := <-rc.processDone:
		exitCode := exitCodeFromError(processErr)
		r.logger.Info("Process exited", "exit_code", exitCode)
		return exitCode
	}
}

// RunWithRestart runs the child and handles restart requests.
// It loops, restarting the process when RequestRestart() is called.
// Returns only on shutdown signal or child exit.
func (r *Runner) RunWithRestart() int {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		exitCode, reason := r.runOnce(sigChan)

		switch reason {
		case exitReasonShutdown:
			r.logger.Info("Shutdown complete", "exit_code", exitCode)
			return exitCode
		case exitReasonRestart:
			r.logger.Info("Restarting process")
			continue
		case exitReasonProcessExit:
			r.logger.Info("Process exited", "exit_code", exitCode)
			return exitCode
		}
	}
}

func (r *Runner) runOnce(sigChan <-chan os.Signal) (int, exitReason) {
	rc, err := r.startChild(r.GetCommand())
	if err != nil {
		return 1, exitReasonProcessExit
	}
	defer r.waitOutputDone(rc.outputDone)

	select {
	case <-r.ctx.Done():
		r.logger.Info("Context cancelled, shutting down process")
		r.sendStopSignal()
		return r.waitForExit(rc.processDone, r.gracefulTimeout), exitReasonShutdown

	case sig := <-sigChan:
		r.logger.Info("Received shutdown signal", "signal", sig.String())
		r.sendStopSignal()
		return r.waitForExit(rc.processDone, r.gracefulTimeout), exitReasonShutdown

	case newCmd := <-r.restartChan:
		r.logger.Info("Received restart request")
		r.sendStopSignal()
		r.commandMu.Lock()
		r.command = newCmd
		r.commandMu.Unlock()
		return r.waitForExit(rc.processDone, r.gracefulTimeout), exitReasonRestart

	case processErr := <-rc.processDone:
		exitCode := exitCodeFromError(processErr)
		r.logger.Info("Process exited", "exit_code", exitCode)
		return exitCode, exitReasonProcessExit
	}
}

// sendStopSignal sends SIGINT to the child's process group without waiting.
func (r *Runner) sendStopSignal() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	r.logger.Info("Sending SIGINT to process", "pid", r.cmd.Process.Pid)
	if err := signalGroup(r.cmd.Process.Pid, syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the child to exit with a timeout, force-killing if needed.
func (r *Runner) waitForExit(processDone <-chan error, timeout time.Duration) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(timeout):
		r.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		if r.cmd.Process != nil {
			if err := signalGroup(r.cmd.Process.Pid, syscall.SIGKILL); err != nil {
				// os.ErrProcessDone is OK - process exited between timeout and kill
				if !errors.Is(err, os.ErrProcessDone) {
					r.logger.Error("Failed to kill process", "error", err)
				}
			}
		}
		select {
		case <-processDone:
			// Process exited
		case <-time.After(r.killTimeout):
			r.logger.Error("Process did not exit after kill signal")
		}
		return 137
	}
}

// echoOutput copies child output line by line, prefixed with the project name.
func (r *Runner) echoOutput(reader io.Reader, echo io.Writer) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintf(echo, "[%s] %s\n", r.name, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading output", "error", err)
	}
}
