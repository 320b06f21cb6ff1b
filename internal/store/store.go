package store

import (
	"context"

	"github.com/me/dfjss/pkg/model"
)

// Store defines the persistence layer for simulation runs.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	// GetRun returns (nil, nil) when no run has the given ID.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.RunQuery) ([]*model.Run, int, error)
	// DeleteRun reports whether a run was removed.
	DeleteRun(ctx context.Context, id string) (bool, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
