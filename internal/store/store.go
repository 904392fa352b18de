// Package store persists pipeline run history and the remote-listing
// manifest.
package store

import (
	"context"
	"time"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Runs records pipeline executions.
type Runs interface {
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
}

// Manifest caches remote folder listings. Get treats entries older than
// ttl as absent.
type Manifest interface {
	GetManifest(ctx context.Context, folderID string, ttl time.Duration) (*model.ManifestEntry, error)
	PutManifest(ctx context.Context, entry model.ManifestEntry) error
	ClearManifest(ctx context.Context, folderID string) error
	ClearAllManifests(ctx context.Context) (int, error)
	ListManifests(ctx context.Context) ([]model.ManifestEntry, error)
}

// Store is the full persistence surface.
type Store interface {
	Runs
	Manifest

	Migrate(ctx context.Context) error
	Close() error
}
