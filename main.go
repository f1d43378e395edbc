package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/projectnode/cmd"
	"github.com/smazurov/projectnode/internal/api"
	"github.com/smazurov/projectnode/internal/config"
	"github.com/smazurov/projectnode/internal/events"
	"github.com/smazurov/projectnode/internal/logging"
	"github.com/smazurov/projectnode/internal/process"
	"github.com/smazurov/projectnode/internal/projects"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":7000" toml:"server.port" env:"SERVER_PORT"`

	// Project settings
	ProjectsDir     string `help:"Directory holding project directories" default:"./projects" toml:"projects.dir" env:"PROJECTS_DIR"`
	TemplatesDir    string `help:"Directory holding project templates" default:"./templates" toml:"projects.templates_dir" env:"TEMPLATES_DIR"`
	DefaultTemplate string `help:"Template used when create requests omit one" default:"basic-app" toml:"projects.default_template" env:"DEFAULT_TEMPLATE"`

	// Process settings
	DefaultCommand string `help:"Command used when start requests omit one" default:"npm start" toml:"process.default_command" env:"DEFAULT_COMMAND"`
	LogBufferSize  int    `help:"Captured log entries kept per process" default:"500" toml:"process.log_buffer_size" env:"LOG_BUFFER_SIZE"`
	GracePeriod    string `help:"Time between SIGINT and SIGKILL on stop" default:"5s" toml:"process.grace_period" env:"GRACE_PERIOD"`
	CommandsFile   string `help:"Per-project command store file" default:"commands.toml" toml:"process.commands_file" env:"COMMANDS_FILE"`

	// Auth settings (empty credentials disable auth)
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingProcess  string `help:"Process supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingProjects string `help:"Project store logging level" default:"info" toml:"logging.projects" env:"LOGGING_PROJECTS"`
	LoggingConfig   string `help:"Config loader logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"api":      opts.LoggingAPI,
				"process":  opts.LoggingProcess,
				"projects": opts.LoggingProjects,
				"config":   opts.LoggingConfig,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		gracePeriod, err := time.ParseDuration(opts.GracePeriod)
		if err != nil {
			logger.Warn("Invalid grace period, using default", "value", opts.GracePeriod)
			gracePeriod = process.DefaultGracePeriod
		}

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward controller log entries to SSE subscribers
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		store := projects.NewStore(opts.ProjectsDir, opts.TemplatesDir)

		commandStore := config.NewCommandStore(opts.CommandsFile)
		if loadErr := commandStore.Load(); loadErr != nil {
			logger.Warn("Failed to load command store", "error", loadErr, "path", opts.CommandsFile)
		}

		supervisor := process.NewSupervisor(store, eventBus, process.Config{
			LogBufferSize:  opts.LogBufferSize,
			GracePeriod:    gracePeriod,
			DefaultCommand: opts.DefaultCommand,
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			DefaultTemplate:   opts.DefaultTemplate,
			Store:             store,
			Supervisor:        supervisor,
			Commands:          commandStore,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop tracked processes after the server stops accepting requests
			logger.Info("Stopping all supervised processes")
			supervisor.StopAll(2 * gracePeriod)
		})
	})

	// Add run command
	cli.Root().AddCommand(cmd.CreateRunCmd())

	// Add update command
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	// Run the CLI
	cli.Run()
}
