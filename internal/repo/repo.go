// Package repo persists Building documents. The core never builds
// storage queries itself; everything it needs is a named operation
// here, with SQLite and Postgres backends.
package repo

import (
	"context"
	"time"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// Repository is the persistence contract for reconciled buildings.
// Save replaces the whole document atomically; that is the only
// locking the core relies on.
type Repository interface {
	// FindByID returns the building with the given canonical id, or
	// nil when absent.
	FindByID(ctx context.Context, id string) (*model.Building, error)

	// FindByLegacyID returns the building whose canonical view carries
	// the given legacy id, or nil when absent.
	FindByLegacyID(ctx context.Context, id string) (*model.Building, error)

	// Save stores the building, replacing any previous document under
	// the same canonical id.
	Save(ctx context.Context, b *model.Building) error

	// Remove deletes the building document.
	Remove(ctx context.Context, id string) error

	// FindStale returns buildings whose given namespace is live but
	// was last touched before the given instant.
	FindStale(ctx context.Context, source model.SourceKind, before time.Time) ([]*model.Building, error)

	// UnsetNamespace soft-deletes one namespace: its data is removed
	// and a deletion marker is stamped, atomically for the building.
	UnsetNamespace(ctx context.Context, id string, source model.SourceKind, stamp time.Time) error

	// RemoveIfAllNamespacesDeleted destroys every building no source
	// any longer affirms: all namespaces it ever had are soft-deleted.
	// Returns the removed ids.
	RemoveIfAllNamespacesDeleted(ctx context.Context) ([]string, error)

	// List returns every building ordered by canonical id.
	List(ctx context.Context) ([]*model.Building, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
