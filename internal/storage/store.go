// Package storage persists project snapshots. Ownership is enforced at the
// store boundary: a caller asking for someone else's project gets
// ErrForbidden, never a silently filtered result.
package storage

import (
	"context"
	"errors"

	"github.com/prdforge/prdforge/internal/project"
)

var (
	// ErrNotFound is returned when no project exists under the given id.
	ErrNotFound = errors.New("project not found")
	// ErrForbidden is returned when the caller does not own the project.
	ErrForbidden = errors.New("project owned by another user")
)

// ProjectStore defines operations for project persistence.
type ProjectStore interface {
	// Create stores a new project and assigns its id.
	Create(ctx context.Context, p *project.Project) error

	// Get returns the project if it exists and is owned by ownerKey.
	Get(ctx context.Context, id, ownerKey string) (*project.Project, error)

	// Update applies the patch to the project, stamps UpdatedAt, and
	// returns the updated record.
	Update(ctx context.Context, id, ownerKey string, patch project.Patch) (*project.Project, error)

	// Delete removes the project.
	Delete(ctx context.Context, id, ownerKey string) error

	// List returns the caller's projects, most recently updated first.
	List(ctx context.Context, ownerKey string) ([]*project.Project, error)

	Close() error
}
