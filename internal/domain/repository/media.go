package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// MediaEntryRepository loads the registry table from persistent storage.
// It is read once at start-up; the registry never writes back.
type MediaEntryRepository interface {
	// ListEntries returns every entry ordered by kind and insertion position.
	ListEntries(ctx context.Context) ([]model.MediaEntry, error)
}

// SweepRepository persists asynchronous sweep runs.
type SweepRepository interface {
	// Create persists a new sweep.
	Create(ctx context.Context, sweep *model.Sweep) error

	// GetByID retrieves a sweep. Returns ErrSweepNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Sweep, error)

	// Update persists status, report and error of an existing sweep.
	// Returns ErrSweepNotFound if the sweep does not exist.
	Update(ctx context.Context, sweep *model.Sweep) error
}
