package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prdforge/prdforge/internal/project"
)

// MemoryProjectStore is an in-memory ProjectStore used in tests and as a
// fallback when no database path is configured.
type MemoryProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
}

// NewMemoryProjectStore creates an empty in-memory store.
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[string]*project.Project)}
}

// Create stores a new project and assigns its id.
func (s *MemoryProjectStore) Create(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	clone := *p
	s.projects[p.ID] = &clone
	return nil
}

// Get returns the project if it exists and is owned by ownerKey.
func (s *MemoryProjectStore) Get(_ context.Context, id, ownerKey string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked(id, ownerKey)
}

// Update applies the patch to the project and stamps UpdatedAt.
func (s *MemoryProjectStore) Update(_ context.Context, id, ownerKey string, patch project.Patch) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.locked(id, ownerKey)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	p.UpdatedAt = time.Now().UTC()

	clone := *p
	s.projects[id] = &clone
	return p, nil
}

// Delete removes the project.
func (s *MemoryProjectStore) Delete(_ context.Context, id, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.locked(id, ownerKey); err != nil {
		return err
	}
	delete(s.projects, id)
	return nil
}

// List returns the caller's projects, most recently updated first.
func (s *MemoryProjectStore) List(_ context.Context, ownerKey string) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projects []*project.Project
	for _, p := range s.projects {
		if p.OwnerKey == ownerKey {
			clone := *p
			projects = append(projects, &clone)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

// Close implements ProjectStore.
func (s *MemoryProjectStore) Close() error { return nil }

func (s *MemoryProjectStore) locked(id, ownerKey string) (*project.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.OwnerKey != ownerKey {
		return nil, ErrForbidden
	}
	clone := *p
	return &clone, nil
}
