package process

import (
	"sort"
	"sync"

	"github.com/smazurov/projectnode/internal/projects"
)

// Registry is the authoritative map of tracked processes. Names are reserved
// atomically at start time; only the exit observer removes entries.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Reserve claims a name for a new process. Fails if the name is already
// tracked, including in the stopping state.
func (r *Registry) Reserve(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.Name]; exists {
		return projects.NewError(projects.ErrCodeAlreadyRunning, "project "+rec.Name+" is already running", nil)
	}
	r.records[rec.Name] = rec
	return nil
}

// Get returns the record for a name, if tracked.
func (r *Registry) Get(name string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	return rec, ok
}

// Remove drops a record. Removing an untracked name is a no-op so the exit
// observer and spawn rollback can both call it safely.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, name)
}

// List returns a snapshot of all records sorted by name.
func (r *Registry) List() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	return records
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
