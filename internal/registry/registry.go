// Package registry holds the immutable short-ID → upstream-object table.
package registry

import (
	"context"
	"fmt"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

// Registry is a read-only lookup from (kind, short ID) to a MediaEntry.
// It is built once and safe for concurrent use without locking.
type Registry struct {
	entries map[model.Kind]map[string]model.MediaEntry
	order   map[model.Kind][]string
}

// New builds a Registry from entries, keeping their order within each kind.
// It rejects invalid entries and duplicate short IDs within a kind.
func New(entries []model.MediaEntry) (*Registry, error) {
	r := &Registry{
		entries: make(map[model.Kind]map[string]model.MediaEntry, len(model.Kinds)),
		order:   make(map[model.Kind][]string, len(model.Kinds)),
	}
	for _, k := range model.Kinds {
		r.entries[k] = make(map[string]model.MediaEntry)
	}

	for _, e := range entries {
		entry, err := model.NewMediaEntry(e.Kind, e.ShortID, e.UpstreamObjectID)
		if err != nil {
			return nil, err
		}
		if _, exists := r.entries[entry.Kind][entry.ShortID]; exists {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateMedia, entry.Ref())
		}
		r.entries[entry.Kind][entry.ShortID] = entry
		r.order[entry.Kind] = append(r.order[entry.Kind], entry.ShortID)
	}

	return r, nil
}

// FromRepository builds a Registry from the entries stored in repo.
func FromRepository(ctx context.Context, repo repository.MediaEntryRepository) (*Registry, error) {
	entries, err := repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media entries: %w", err)
	}
	return New(entries)
}

// Lookup returns the entry registered for kind and shortID.
// Matching is exact and case-sensitive.
func (r *Registry) Lookup(kind model.Kind, shortID string) (model.MediaEntry, error) {
	entry, ok := r.entries[kind][shortID]
	if !ok {
		return model.MediaEntry{}, fmt.Errorf("%w: %s", repository.ErrMediaNotFound, model.MediaRef{Kind: kind, ShortID: shortID})
	}
	return entry, nil
}

// ListIDs returns the short IDs of a kind in insertion order.
// The returned slice is a copy; callers may modify it.
func (r *Registry) ListIDs(kind model.Kind) []string {
	ids := make([]string, len(r.order[kind]))
	copy(ids, r.order[kind])
	return ids
}

// Entries returns every entry, grouped by kind in canonical order.
func (r *Registry) Entries() []model.MediaEntry {
	out := make([]model.MediaEntry, 0, r.Len())
	for _, k := range model.Kinds {
		for _, id := range r.order[k] {
			out = append(out, r.entries[k][id])
		}
	}
	return out
}

// Counts returns the number of entries per kind.
func (r *Registry) Counts() map[model.Kind]int {
	counts := make(map[model.Kind]int, len(model.Kinds))
	for _, k := range model.Kinds {
		counts[k] = len(r.order[k])
	}
	return counts
}

// Len returns the total number of entries.
func (r *Registry) Len() int {
	n := 0
	for _, ids := range r.order {
		n += len(ids)
	}
	return n
}
