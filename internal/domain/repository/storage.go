package repository

import (
	"context"
	"net/url"
)

// UpstreamResolver turns an upstream object ID into a retrieval URL.
// Implementations must not perform network I/O and must request the raw
// object bytes rather than any landing page.
type UpstreamResolver interface {
	Resolve(ctx context.Context, objectID string) (*url.URL, error)
}
