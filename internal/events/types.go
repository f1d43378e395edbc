package events

// Event type constants for kelindar/event.
const (
	TypeProjectCreated uint32 = iota + 1
	TypeProcessStarted
	TypeProcessStopRequested
	TypeProcessExited
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProjectCreatedEvent is published when a project is materialized from a template.
type ProjectCreatedEvent struct {
	Name        string `json:"name" example:"demo" doc:"Project name"`
	Template    string `json:"template" example:"basic-app" doc:"Template the project was created from"`
	ProjectPath string `json:"project_path" doc:"Path of the created project directory"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProjectCreatedEvent.
func (e ProjectCreatedEvent) Type() uint32 { return TypeProjectCreated }

// ProcessStartedEvent is published when a project process has been spawned.
type ProcessStartedEvent struct {
	Name      string `json:"name" example:"demo" doc:"Project name"`
	PID       int    `json:"pid" example:"12345" doc:"OS process id"`
	Command   string `json:"command" example:"npm" doc:"Launched command"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStartedEvent.
func (e ProcessStartedEvent) Type() uint32 { return TypeProcessStarted }

// ProcessStopRequestedEvent is published when a stop request is accepted for
// a running process. The process is still alive at this point; removal is
// reported separately by ProcessExitedEvent.
type ProcessStopRequestedEvent struct {
	Name      string `json:"name" example:"demo" doc:"Project name"`
	PID       int    `json:"pid" example:"12345" doc:"OS process id"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStopRequestedEvent.
func (e ProcessStopRequestedEvent) Type() uint32 { return TypeProcessStopRequested }

// ProcessExitedEvent is published after the OS confirms process termination
// and the registry entry has been removed.
type ProcessExitedEvent struct {
	Name      string `json:"name" example:"demo" doc:"Project name"`
	PID       int    `json:"pid" example:"12345" doc:"OS process id"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Process exit code (137 when killed)"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessExitedEvent.
func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }

// LogEntryEvent represents a controller log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
