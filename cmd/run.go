package cmd

import (
	"os"
	"path/filepath"

	"github.com/smazurov/projectnode/internal/config"
	"github.com/smazurov/projectnode/internal/logging"
	"github.com/smazurov/projectnode/internal/process"
	"github.com/smazurov/projectnode/internal/projects"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var projectsDir string
	var commandsFile string
	var commandOverride string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "run [project-name]",
		Short: "Run a project process in the foreground",
		Long: `Spawns the project's command in its directory and ties it to the terminal. ` +
			`Watches the project manifest and the stored command file, restarting the process when either changes.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			name := args[0]

			// Initialize minimal logging
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("run").With("project", name)

			if err := projects.ValidateName(name); err != nil {
				logger.Error("Invalid project name", "error", err)
				os.Exit(1)
			}

			store := projects.NewStore(projectsDir, "")
			dir, err := store.ProjectPath(name)
			if err != nil {
				logger.Error("Failed to resolve project path", "error", err)
				os.Exit(1)
			}
			if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
				logger.Error("Project not found", "dir", dir)
				os.Exit(1)
			}

			// Stored commands are optional for the run command
			commandStore := config.NewCommandStore(commandsFile)
			if loadErr := commandStore.Load(); loadErr != nil {
				logger.Warn("Failed to load command store", "error", loadErr, "path", commandsFile)
			}

			command := commandOverride
			if command == "" {
				if stored, ok := commandStore.Get(name); ok {
					command = stored
				} else {
					command = process.DefaultCommand
				}
			}

			parsed, parseErr := process.ParseCommand(command)
			if parseErr != nil || len(parsed) == 0 {
				logger.Error("Invalid command", "command", command, "error", parseErr)
				os.Exit(1)
			}

			manifestPath := filepath.Join(dir, process.ManifestFile)
			if process.NeedsManifest(parsed[0]) {
				if _, statErr := os.Stat(manifestPath); statErr != nil {
					logger.Error("Manifest required but not found", "command", command, "manifest", manifestPath)
					os.Exit(1)
				}
			}

			logger.Info("Starting project", "command", command, "dir", dir)
			runner := process.NewRunner(name, command, dir, logger)

			// Restart with the new command when the stored one changes.
			// CLI overrides win, so skip the watcher entirely in that case.
			if commandOverride == "" {
				if _, statErr := os.Stat(commandsFile); statErr == nil {
					commandsLoader := func(path string) (map[string]config.ProjectCommand, error) {
						cs := config.NewCommandStore(path)
						if loadErr := cs.Load(); loadErr != nil {
							return nil, loadErr
						}
						return cs.All(), nil
					}

					commandWatcher := config.NewFileWatcher(commandsFile, commandsLoader, logger)
					commandWatcher.OnReload(func(all map[string]config.ProjectCommand) {
						stored, ok := all[name]
						if !ok {
							logger.Debug("No stored command for project after reload")
							return
						}
						if stored.Command != runner.GetCommand() {
							logger.Info("Stored command changed, requesting restart")
							runner.RequestRestart(stored.Command)
						}
					})

					if startErr := commandWatcher.Start(); startErr != nil {
						logger.Warn("Failed to watch command store, hot-reload disabled", "error", startErr)
					} else {
						defer func() { _ = commandWatcher.Stop() }()
					}
				}
			}

			// Restart with the same command when the manifest changes
			if _, statErr := os.Stat(manifestPath); statErr == nil {
				manifestLoader := func(path string) ([]byte, error) {
					return os.ReadFile(path)
				}

				manifestWatcher := config.NewFileWatcher(manifestPath, manifestLoader, logger)
				manifestWatcher.OnReload(func(_ []byte) {
					logger.Info("Manifest changed, requesting restart")
					runner.RequestRestart(runner.GetCommand())
				})

				if startErr := manifestWatcher.Start(); startErr != nil {
					logger.Warn("Failed to watch manifest, hot-reload disabled", "error", startErr)
				} else {
					defer func() { _ = manifestWatcher.Stop() }()
				}
			}

			// Run with restart support
			exitCode := runner.RunWithRestart()

			logger.Info("Run command exiting", "exit_code", exitCode)
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&projectsDir, "projects-dir", "./projects", "Directory holding project directories")
	cmd.Flags().StringVar(&commandsFile, "commands", "commands.toml", "Path to the per-project command store")
	cmd.Flags().StringVar(&commandOverride, "command", "",
		"Override the command to run (skips the stored command)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
