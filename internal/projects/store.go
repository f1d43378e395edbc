package projects

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smazurov/projectnode/internal/logging"
)

// Store resolves project and template names to directories on disk and
// materializes new projects from templates. It holds no state beyond the
// two root directories; every listing re-scans the filesystem.
type Store struct {
	projectsDir  string
	templatesDir string
	logger       *slog.Logger
}

// NewStore creates a store rooted at the given project and template directories.
func NewStore(projectsDir, templatesDir string) *Store {
	return &Store{
		projectsDir:  projectsDir,
		templatesDir: templatesDir,
		logger:       logging.GetLogger("projects"),
	}
}

// ProjectsDir returns the configured projects root.
func (s *Store) ProjectsDir() string {
	return s.projectsDir
}

// ProjectPath resolves a project name to its directory path.
// The name is validated before any path is constructed.
func (s *Store) ProjectPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.projectsDir, name), nil
}

// TemplatePath resolves a template name to its directory path.
func (s *Store) TemplatePath(template string) (string, error) {
	if err := ValidateName(template); err != nil {
		return "", err
	}
	return filepath.Join(s.templatesDir, template), nil
}

// List returns the names of all project directories currently on disk.
// A missing projects root is treated as an empty store, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Exists reports whether a project directory exists for the given name.
// Invalid names never exist.
func (s *Store) Exists(name string) bool {
	path, err := s.ProjectPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Create materializes a new project directory from a template and returns
// the project path. The copy is not atomic: a partial tree may remain on
// disk when the copy fails, reported as CREATE_FAILED.
func (s *Store) Create(name, template string) (string, error) {
	projectPath, err := s.ProjectPath(name)
	if err != nil {
		return "", err
	}

	templatePath, err := s.TemplatePath(template)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(templatePath)
	if err != nil || !info.IsDir() {
		return "", NewError(ErrCodeTemplateNotFound,
			fmt.Sprintf("template %q not found", template), err)
	}

	if _, err := os.Stat(projectPath); err == nil {
		return "", NewError(ErrCodeProjectExists,
			fmt.Sprintf("project %q already exists", name), nil)
	}

	if err := os.MkdirAll(s.projectsDir, 0o755); err != nil {
		return "", NewError(ErrCodeCreateFailed, "failed to create projects directory", err)
	}

	if err := os.CopyFS(projectPath, os.DirFS(templatePath)); err != nil {
		return "", NewError(ErrCodeCreateFailed,
			fmt.Sprintf("failed to copy template %q", template), err)
	}

	s.logger.Info("Project created", "name", name, "template", template, "path", projectPath)
	return projectPath, nil
}
