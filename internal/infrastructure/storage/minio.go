// Package storage resolves upstream objects held in an S3-compatible store.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

// minioClient defines the subset of MinIO operations the resolver needs.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint string
	// PublicEndpoint is an optional external-facing endpoint; presigned URLs
	// are signed for it so the relay can reach the store through it.
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	// Region must be set so presigning never performs a bucket-location lookup.
	Region      string
	UseSSL      bool
	PresignTTL  time.Duration
	VerifyOnNew bool
}

// PresignResolver implements repository.UpstreamResolver with presigned GET URLs.
type PresignResolver struct {
	client          minioClient
	presignedClient minioClient // may be configured with the public endpoint
	bucket          string
	ttl             time.Duration
}

// NewPresignResolver creates a resolver for objects in cfg.Bucket.
// When VerifyOnNew is set it checks that the bucket exists to fail fast on
// misconfiguration.
func NewPresignResolver(ctx context.Context, cfg ClientConfig) (*PresignResolver, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("minio region is required for local presigning")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	var presigned minioClient = client
	if cfg.PublicEndpoint != "" {
		presignedClient, err := minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create presigned minio client: %w", err)
		}
		presigned = presignedClient
	}

	return newPresignResolver(ctx, client, presigned, cfg)
}

// newPresignResolver creates a PresignResolver with given minioClient implementations.
// This is used for dependency injection in tests.
func newPresignResolver(ctx context.Context, client, presignedClient minioClient, cfg ClientConfig) (*PresignResolver, error) {
	if cfg.VerifyOnNew {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, cfg.Bucket)
		}
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &PresignResolver{
		client:          client,
		presignedClient: presignedClient,
		bucket:          cfg.Bucket,
		ttl:             ttl,
	}, nil
}

// Resolve returns a presigned GET URL for objectID. Signing is local.
func (r *PresignResolver) Resolve(ctx context.Context, objectID string) (*url.URL, error) {
	key := strings.TrimPrefix(objectID, "/")
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", repository.ErrInvalidObjectID)
	}

	u, err := r.presignedClient.PresignedGetObject(ctx, r.bucket, key, r.ttl, make(url.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return u, nil
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (r *PresignResolver) Ping(ctx context.Context) error {
	if _, err := r.client.BucketExists(ctx, r.bucket); err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (r *PresignResolver) Bucket() string {
	return r.bucket
}

// Compile-time verification that PresignResolver implements repository.UpstreamResolver.
var _ repository.UpstreamResolver = (*PresignResolver)(nil)
