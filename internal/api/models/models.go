// Package models holds request and response shapes for the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	OK      bool   `json:"ok" example:"true" doc:"Whether the service is healthy"`
	Service string `json:"service" example:"projectnode" doc:"Service name"`
	Status  string `json:"status" example:"ok" doc:"Service status"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit,omitempty" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date,omitempty" doc:"Build timestamp"`
	GoVersion string `json:"go_version,omitempty" example:"go1.24" doc:"Go runtime version"`
	Platform  string `json:"platform,omitempty" example:"linux/amd64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Project listing models
type ProjectSummary struct {
	Name    string `json:"name" example:"my-app" doc:"Project name"`
	Path    string `json:"project_path" doc:"Project directory path"`
	Running bool   `json:"running" example:"false" doc:"Whether a process is currently tracked for this project"`
}

type ProjectListData struct {
	OK       bool             `json:"ok" example:"true" doc:"Whether the request succeeded"`
	Projects []ProjectSummary `json:"projects" doc:"Projects sorted alphabetically by name"`
	Count    int              `json:"count" example:"2" doc:"Number of projects"`
}

type ProjectListResponse struct {
	Body ProjectListData
}

// Project creation models
type CreateProjectRequestData struct {
	Name     string `json:"name" pattern:"^[A-Za-z0-9_-]+$" minLength:"1" maxLength:"100" example:"my-app" doc:"Project name (alphanumeric, dashes, underscores only)"`
	Template string `json:"template,omitempty" pattern:"^[A-Za-z0-9_-]*$" maxLength:"100" example:"basic-app" doc:"Template to copy (default used when omitted)"`
}

type CreateProjectRequest struct {
	Body CreateProjectRequestData
}

type CreateProjectData struct {
	OK       bool   `json:"ok" example:"true" doc:"Whether the project was created"`
	Name     string `json:"name" example:"my-app" doc:"Project name"`
	Template string `json:"template" example:"basic-app" doc:"Template the project was created from"`
	Path     string `json:"project_path" doc:"Path of the created project directory"`
}

type CreateProjectResponse struct {
	Body CreateProjectData
}

// Process start models
type StartProjectRequestData struct {
	Name    string   `json:"name" pattern:"^[A-Za-z0-9_-]+$" minLength:"1" maxLength:"100" example:"my-app" doc:"Project name"`
	Command string   `json:"command,omitempty" example:"npm start" doc:"Launch command (stored override or default used when omitted)"`
	Args    []string `json:"args,omitempty" example:"--port,3000" doc:"Extra arguments appended to the command"`
}

type StartProjectRequest struct {
	Body StartProjectRequestData
}

type ProcessData struct {
	Name      string    `json:"name" example:"my-app" doc:"Project name"`
	PID       int       `json:"pid" example:"12345" doc:"OS process id"`
	Status    string    `json:"status" example:"running" doc:"Lifecycle state"`
	Command   string    `json:"command" example:"npm start" doc:"Launch command"`
	Args      []string  `json:"args,omitempty" doc:"Extra arguments appended to the command"`
	Path      string    `json:"project_path" doc:"Project working directory"`
	StartedAt time.Time `json:"started_at" doc:"Spawn time"`
}

type StartProjectData struct {
	OK bool `json:"ok" example:"true" doc:"Whether the process was started"`
	ProcessData
}

type StartProjectResponse struct {
	Body StartProjectData
}

// Process stop models
type StopProjectRequestData struct {
	Name string `json:"name" pattern:"^[A-Za-z0-9_-]+$" minLength:"1" maxLength:"100" example:"my-app" doc:"Project name"`
}

type StopProjectRequest struct {
	Body StopProjectRequestData
}

type StopProjectData struct {
	OK     bool   `json:"ok" example:"true" doc:"Whether the stop request was accepted"`
	Name   string `json:"name" example:"my-app" doc:"Project name"`
	PID    int    `json:"pid" example:"12345" doc:"OS process id the stop signal was sent to"`
	Status string `json:"status" example:"stopping" doc:"Lifecycle state after the request"`
}

type StopProjectResponse struct {
	Body StopProjectData
}

// Running process listing models
type RunningListData struct {
	OK       bool          `json:"ok" example:"true" doc:"Whether the request succeeded"`
	Projects []ProcessData `json:"projects" doc:"Tracked processes sorted by name"`
	Count    int           `json:"count" example:"1" doc:"Number of tracked processes"`
}

type RunningListResponse struct {
	Body RunningListData
}

// Process log models
type LogEntryData struct {
	Timestamp time.Time `json:"timestamp" doc:"Capture time"`
	Stream    string    `json:"stream" example:"stdout" doc:"Line origin (stdout, stderr, system)"`
	Text      string    `json:"text" doc:"Line content"`
}

type ProjectLogsData struct {
	OK      bool           `json:"ok" example:"true" doc:"Whether the request succeeded"`
	Name    string         `json:"name" example:"my-app" doc:"Project name"`
	Entries []LogEntryData `json:"entries" doc:"Captured log lines, oldest first"`
	Count   int            `json:"count" example:"42" doc:"Number of returned entries"`
}

type ProjectLogsResponse struct {
	Body ProjectLogsData
}

// Command override models
type SetCommandRequestData struct {
	Command string `json:"command" minLength:"1" example:"node server.js" doc:"Launch command to store for this project"`
}

type SetCommandRequest struct {
	Body SetCommandRequestData
}

type SetCommandData struct {
	OK      bool   `json:"ok" example:"true" doc:"Whether the command was stored"`
	Name    string `json:"name" example:"my-app" doc:"Project name"`
	Command string `json:"command" example:"node server.js" doc:"Stored launch command"`
}

type SetCommandResponse struct {
	Body SetCommandData
}
