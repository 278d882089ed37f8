package repo

import (
	"context"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
)

// RunRepository defines the persistence interface for agent runs.
type RunRepository interface {
	// Create stores a new run.
	Create(ctx context.Context, run *entity.Run) error
	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*entity.Run, error)
	// Update updates an existing run.
	Update(ctx context.Context, run *entity.Run) error
	// ListRecent returns the n most recent runs, newest first.
	ListRecent(ctx context.Context, n int) ([]*entity.Run, error)
}
