package service

import (
	"context"
	"io"
)

// SizeUnknown disables the size check on existence lookups
const SizeUnknown int64 = -1

// ContentService defines the content-addressed object store interface.
// Objects are keyed by (repo, oid) and are immutable once written.
// This abstraction allows for different storage backends (filesystem, S3).
type ContentService interface {
	// Exists reports whether the object is present. When size is not
	// SizeUnknown, a stored object of a different length reports false
	// (the caller treats it as missing and re-uploads). Never returns
	// an error for a plain miss.
	Exists(ctx context.Context, repo, oid string, size int64) (bool, error)

	// Put streams the object body into the store. The object becomes
	// visible to readers only once fully written. size is the declared
	// length; backends may verify the received byte count and digest
	// against it before committing.
	Put(ctx context.Context, repo, oid string, size int64, r io.Reader) error

	// Get opens the object for reading and returns its stored size.
	// A missing object yields errors.ErrObjectNotFound.
	Get(ctx context.Context, repo, oid string) (io.ReadCloser, int64, error)
}
