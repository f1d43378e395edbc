// Package process spawns and tracks project child processes.
//
// The Supervisor owns the registry of running processes. A process enters
// the registry atomically when a start request reserves its name, and leaves
// it only when the exit observer confirms OS-level termination. Stop requests
// mark the entry as stopping and escalate from SIGINT to SIGKILL after a
// grace period; the entry stays visible until the process is actually gone.
package process
