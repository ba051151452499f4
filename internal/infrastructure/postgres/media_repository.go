package postgres

import (
	"context"
	"fmt"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
)

// MediaEntryRepository implements repository.MediaEntryRepository using PostgreSQL.
type MediaEntryRepository struct {
	db DBTX
}

// NewMediaEntryRepository creates a new MediaEntryRepository instance.
func NewMediaEntryRepository(db DBTX) *MediaEntryRepository {
	return &MediaEntryRepository{db: db}
}

// ListEntries returns every registry row in kind and position order.
// Rows with an unknown kind or blank identifiers are rejected rather than
// skipped so a bad table never silently shrinks the registry.
func (r *MediaEntryRepository) ListEntries(ctx context.Context) ([]model.MediaEntry, error) {
	const query = `
		SELECT kind, short_id, upstream_object_id
		FROM media_entries
		ORDER BY kind, position, short_id
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableMediaEntries).Inc()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query media entries: %w", err)
	}
	defer rows.Close()

	var entries []model.MediaEntry
	for rows.Next() {
		var kind, shortID, objectID string
		if err := rows.Scan(&kind, &shortID, &objectID); err != nil {
			return nil, fmt.Errorf("failed to scan media entry: %w", err)
		}

		entry, err := model.NewMediaEntry(model.Kind(kind), shortID, objectID)
		if err != nil {
			return nil, fmt.Errorf("invalid media entry %s/%s: %w", kind, shortID, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media entries: %w", err)
	}

	return entries, nil
}

// Compile-time verification that MediaEntryRepository implements repository.MediaEntryRepository.
var _ repository.MediaEntryRepository = (*MediaEntryRepository)(nil)
