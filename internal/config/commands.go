package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/projectnode/internal/projects"
)

// ProjectCommand is a persisted per-project launch command.
type ProjectCommand struct {
	Command   string    `toml:"command" json:"command"`
	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// CommandsConfig is the on-disk format of the command overrides file.
type CommandsConfig struct {
	Version  int                       `toml:"version" json:"version"`
	Projects map[string]ProjectCommand `toml:"projects" json:"projects"`
}

// CommandStore persists per-project launch commands. A start request that
// omits the command uses the stored override before falling back to the
// global default. Safe for concurrent use: the PUT handler writes while
// start requests read.
type CommandStore struct {
	mu         sync.RWMutex
	configPath string
	config     *CommandsConfig
}

// NewCommandStore creates a command store backed by the given TOML file.
func NewCommandStore(configPath string) *CommandStore {
	if configPath == "" {
		configPath = "commands.toml"
	}

	return &CommandStore{
		configPath: configPath,
		config: &CommandsConfig{
			Version:  1,
			Projects: make(map[string]ProjectCommand),
		},
	}
}

// Load loads the overrides from disk. A missing file yields an empty store.
func (cs *CommandStore) Load() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, err := os.Stat(cs.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(cs.configPath)
	if err != nil {
		return fmt.Errorf("failed to read commands config: %w", err)
	}

	if err := toml.Unmarshal(data, cs.config); err != nil {
		return fmt.Errorf("failed to parse commands config: %w", err)
	}

	if cs.config.Projects == nil {
		cs.config.Projects = make(map[string]ProjectCommand)
	}
	if cs.config.Version == 0 {
		cs.config.Version = 1
	}

	return nil
}

// Save writes the overrides to disk.
func (cs *CommandStore) Save() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.saveLocked()
}

// saveLocked writes the overrides to disk. Callers must hold mu.
func (cs *CommandStore) saveLocked() error {
	dir := filepath.Dir(cs.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cs.config)
	if err != nil {
		return fmt.Errorf("failed to marshal commands config: %w", err)
	}

	if err := os.WriteFile(cs.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write commands config: %w", err)
	}

	return nil
}

// Set stores a launch command override for a project.
func (cs *CommandStore) Set(name, command string) error {
	if err := projects.ValidateName(name); err != nil {
		return err
	}
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := time.Now()
	entry, exists := cs.config.Projects[name]
	if !exists {
		entry.CreatedAt = now
	}
	entry.Command = command
	entry.UpdatedAt = now

	cs.config.Projects[name] = entry
	return cs.saveLocked()
}

// Get returns the stored command for a project, if any.
func (cs *CommandStore) Get(name string) (string, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.config.Projects[name]
	if !exists {
		return "", false
	}
	return entry.Command, true
}

// Remove deletes a project's override.
func (cs *CommandStore) Remove(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.config.Projects[name]; !exists {
		return fmt.Errorf("no command stored for project %s", name)
	}

	delete(cs.config.Projects, name)
	return cs.saveLocked()
}

// All returns a copy of the stored overrides.
func (cs *CommandStore) All() map[string]ProjectCommand {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	result := make(map[string]ProjectCommand, len(cs.config.Projects))
	for name, entry := range cs.config.Projects {
		result[name] = entry
	}
	return result
}
