package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// ProbeCache defines the interface for caching upstream probe results.
// Implementations should handle serialization/deserialization transparently.
type ProbeCache interface {
	// Get retrieves the cached result for ref.
	// Returns nil, nil if the ref is not found in cache (cache miss).
	Get(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error)

	// Set stores a result in cache with the specified TTL.
	Set(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error

	// Delete removes the cached result for ref.
	// Returns nil if the ref was not in cache.
	Delete(ctx context.Context, ref model.MediaRef) error
}
