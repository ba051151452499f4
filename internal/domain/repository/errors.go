package repository

import "errors"

var (
	// ErrMediaNotFound is returned when a (kind, short ID) pair is not registered.
	ErrMediaNotFound = errors.New("media not found")

	// ErrDuplicateMedia is returned when a short ID is registered twice within one kind.
	ErrDuplicateMedia = errors.New("media already registered")

	// ErrSweepNotFound is returned when a sweep record cannot be found.
	ErrSweepNotFound = errors.New("sweep not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidObjectID is returned when an upstream object ID cannot be addressed.
	ErrInvalidObjectID = errors.New("invalid upstream object ID")
)
