package process

import (
	"os/exec"
	"sync"
	"time"
)

// Status is the lifecycle state of a tracked process.
type Status string

const (
	// StatusRunning means the process has been spawned and not yet asked to stop.
	StatusRunning Status = "running"
	// StatusStopping means a stop request was accepted; the process is still
	// alive until the exit observer removes it.
	StatusStopping Status = "stopping"
)

// Record tracks one running project process.
type Record struct {
	Name      string
	Command   string
	Args      []string
	Path      string
	PID       int
	StartedAt time.Time

	mu        sync.Mutex
	status    Status
	cmd       *exec.Cmd
	killTimer *time.Timer
	done      chan struct{}
	buffer    *Buffer
}

// Info is an immutable snapshot of a tracked process.
type Info struct {
	Name      string    `json:"name" example:"demo" doc:"Project name"`
	PID       int       `json:"pid" example:"12345" doc:"OS process id"`
	Status    Status    `json:"status" example:"running" doc:"Lifecycle state"`
	Command   string    `json:"command" example:"npm start" doc:"Launch command"`
	Args      []string  `json:"args,omitempty" doc:"Extra arguments appended to the command"`
	Path      string    `json:"project_path" doc:"Project working directory"`
	StartedAt time.Time `json:"started_at" doc:"Spawn time"`
}

// Info returns a snapshot of the record.
func (r *Record) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		Name:      r.Name,
		PID:       r.PID,
		Status:    r.status,
		Command:   r.Command,
		Args:      r.Args,
		Path:      r.Path,
		StartedAt: r.StartedAt,
	}
}

// Status returns the current lifecycle state.
func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Done returns a channel closed when the exit observer has confirmed
// termination and removed the record from the registry.
func (r *Record) Done() <-chan struct{} {
	return r.done
}

// Buffer returns the process log buffer.
func (r *Record) Buffer() *Buffer {
	return r.buffer
}

// stopKillTimer cancels a pending SIGKILL escalation, if any.
func (r *Record) stopKillTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killTimer != nil {
		r.killTimer.Stop()
		r.killTimer = nil
	}
}
