package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

// DefaultDriveBaseURL is the Google Drive direct-download endpoint.
const DefaultDriveBaseURL = "https://drive.google.com/uc"

// DriveResolver builds Google Drive direct-download URLs.
// The confirm parameter skips the virus-scan interstitial so the response
// carries the file bytes instead of an HTML page.
type DriveResolver struct {
	base url.URL
}

// NewDriveResolver creates a resolver rooted at baseURL.
// An empty baseURL selects DefaultDriveBaseURL.
func NewDriveResolver(baseURL string) (*DriveResolver, error) {
	if baseURL == "" {
		baseURL = DefaultDriveBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse drive base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("drive base URL must be absolute: %q", baseURL)
	}
	return &DriveResolver{base: *u}, nil
}

// Resolve formats the download URL for objectID. It never fails.
func (r *DriveResolver) Resolve(_ context.Context, objectID string) (*url.URL, error) {
	u := r.base
	q := u.Query()
	q.Set("export", "download")
	q.Set("id", objectID)
	q.Set("confirm", "t")
	u.RawQuery = q.Encode()
	return &u, nil
}

// Compile-time verification that DriveResolver implements repository.UpstreamResolver.
var _ repository.UpstreamResolver = (*DriveResolver)(nil)
