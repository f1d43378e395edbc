package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/projectnode/internal/api/models"
	"github.com/smazurov/projectnode/internal/events"
	"github.com/smazurov/projectnode/internal/metrics"
	"github.com/smazurov/projectnode/internal/process"
	"github.com/smazurov/projectnode/internal/projects"
)

// registerProjectRoutes registers project and process lifecycle endpoints
func (s *Server) registerProjectRoutes() {
	// List projects
	huma.Register(s.api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List Projects",
		Description: "Get all project directories under the projects root",
		Tags:        []string{"projects"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProjectListResponse, error) {
		names, err := s.store.List()
		if err != nil {
			return nil, s.mapProjectError(err)
		}

		summaries := make([]models.ProjectSummary, 0, len(names))
		for _, name := range names {
			path, pathErr := s.store.ProjectPath(name)
			if pathErr != nil {
				// Directory names that fail identifier validation are skipped
				continue
			}
			summaries = append(summaries, models.ProjectSummary{
				Name:    name,
				Path:    path,
				Running: s.supervisor.IsRunning(name),
			})
		}

		return &models.ProjectListResponse{
			Body: models.ProjectListData{
				OK:       true,
				Projects: summaries,
				Count:    len(summaries),
			},
		}, nil
	})

	// Create project from template
	huma.Register(s.api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/projects/create",
		Summary:     "Create Project",
		Description: "Materialize a new project by copying a template directory",
		Tags:        []string{"projects"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.CreateProjectRequest) (*models.CreateProjectResponse, error) {
		template := input.Body.Template
		if template == "" {
			template = s.options.DefaultTemplate
		}

		path, err := s.store.Create(input.Body.Name, template)
		if err != nil {
			return nil, s.mapProjectError(err)
		}

		metrics.IncProjectsCreated()
		s.publish(events.ProjectCreatedEvent{
			Name:        input.Body.Name,
			Template:    template,
			ProjectPath: path,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})

		return &models.CreateProjectResponse{
			Body: models.CreateProjectData{
				OK:       true,
				Name:     input.Body.Name,
				Template: template,
				Path:     path,
			},
		}, nil
	})

	// Start project process
	huma.Register(s.api, huma.Operation{
		OperationID: "start-project",
		Method:      http.MethodPost,
		Path:        "/projects/start",
		Summary:     "Start Project",
		Description: "Spawn a tracked child process in the project directory",
		Tags:        []string{"processes"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StartProjectRequest) (*models.StartProjectResponse, error) {
		command := input.Body.Command
		if command == "" && s.commands != nil {
			if stored, ok := s.commands.Get(input.Body.Name); ok {
				command = stored
			}
		}

		info, err := s.supervisor.Start(input.Body.Name, command, input.Body.Args)
		if err != nil {
			return nil, s.mapProjectError(err)
		}

		return &models.StartProjectResponse{
			Body: models.StartProjectData{
				OK:          true,
				ProcessData: infoToAPIProcess(*info),
			},
		}, nil
	})

	// Stop project process
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-project",
		Method:      http.MethodPost,
		Path:        "/projects/stop",
		Summary:     "Stop Project",
		Description: "Request graceful termination of a running process (SIGINT, then SIGKILL after the grace period)",
		Tags:        []string{"processes"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StopProjectRequest) (*models.StopProjectResponse, error) {
		info, err := s.supervisor.Stop(input.Body.Name)
		if err != nil {
			return nil, s.mapProjectError(err)
		}

		return &models.StopProjectResponse{
			Body: models.StopProjectData{
				OK:     true,
				Name:   info.Name,
				PID:    info.PID,
				Status: string(info.Status),
			},
		}, nil
	})

	// List running processes
	huma.Register(s.api, huma.Operation{
		OperationID: "list-running",
		Method:      http.MethodGet,
		Path:        "/projects/running",
		Summary:     "List Running Processes",
		Description: "Get all tracked processes, including those still draining after a stop request",
		Tags:        []string{"processes"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.RunningListResponse, error) {
		infos := s.supervisor.ListRunning()
		apiProcesses := make([]models.ProcessData, len(infos))
		for i, info := range infos {
			apiProcesses[i] = infoToAPIProcess(info)
		}

		return &models.RunningListResponse{
			Body: models.RunningListData{
				OK:       true,
				Projects: apiProcesses,
				Count:    len(apiProcesses),
			},
		}, nil
	})

	// Get process logs
	huma.Register(s.api, huma.Operation{
		OperationID: "get-project-logs",
		Method:      http.MethodGet,
		Path:        "/projects/{name}/logs",
		Summary:     "Get Project Logs",
		Description: "Get the most recent captured output of a running process",
		Tags:        []string{"processes"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Name  string `path:"name" example:"my-app" doc:"Project name"`
		Limit int    `query:"limit" minimum:"0" default:"200" example:"100" doc:"Maximum entries to return, capped at the buffer size (0 = all buffered)"`
	}) (*models.ProjectLogsResponse, error) {
		entries, err := s.supervisor.Logs(input.Name, input.Limit)
		if err != nil {
			return nil, s.mapProjectError(err)
		}

		apiEntries := make([]models.LogEntryData, len(entries))
		for i, e := range entries {
			apiEntries[i] = models.LogEntryData{
				Timestamp: e.Timestamp,
				Stream:    string(e.Stream),
				Text:      e.Text,
			}
		}

		return &models.ProjectLogsResponse{
			Body: models.ProjectLogsData{
				OK:      true,
				Name:    input.Name,
				Entries: apiEntries,
				Count:   len(apiEntries),
			},
		}, nil
	})

	// Store a per-project launch command
	huma.Register(s.api, huma.Operation{
		OperationID: "set-project-command",
		Method:      http.MethodPut,
		Path:        "/projects/{name}/command",
		Summary:     "Set Project Command",
		Description: "Store a launch command used when start requests omit one",
		Tags:        []string{"projects"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" example:"my-app" doc:"Project name"`
		Body models.SetCommandRequestData
	}) (*models.SetCommandResponse, error) {
		if s.commands == nil {
			return nil, huma.Error500InternalServerError("command store not configured")
		}
		if err := s.commands.Set(input.Name, input.Body.Command); err != nil {
			return nil, s.mapProjectError(err)
		}

		return &models.SetCommandResponse{
			Body: models.SetCommandData{
				OK:      true,
				Name:    input.Name,
				Command: input.Body.Command,
			},
		}, nil
	})
}

// infoToAPIProcess converts a supervisor snapshot to API process data
func infoToAPIProcess(info process.Info) models.ProcessData {
	return models.ProcessData{
		Name:      info.Name,
		PID:       info.PID,
		Status:    string(info.Status),
		Command:   info.Command,
		Args:      info.Args,
		Path:      info.Path,
		StartedAt: info.StartedAt,
	}
}

// mapProjectError maps domain errors to HTTP errors
func (s *Server) mapProjectError(err error) error {
	switch projects.CodeOf(err) {
	case projects.ErrCodeInvalidName, projects.ErrCodeInvalidCommand:
		return huma.Error400BadRequest(err.Error(), err)
	case projects.ErrCodeManifestNotFound:
		return huma.Error400BadRequest(err.Error(), err)
	case projects.ErrCodeTemplateNotFound, projects.ErrCodeProjectNotFound, projects.ErrCodeNotRunning:
		return huma.Error404NotFound(err.Error(), err)
	case projects.ErrCodeProjectExists, projects.ErrCodeAlreadyRunning:
		return huma.Error409Conflict(err.Error(), err)
	default:
		return huma.Error500InternalServerError(err.Error(), err)
	}
}

func (s *Server) publish(ev events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ev)
	}
}
