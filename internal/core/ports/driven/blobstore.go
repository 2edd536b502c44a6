package driven

import "context"

// BlobStore holds raw uploaded bytes addressed by a storage key.
// Keys are slash separated relative paths.
type BlobStore interface {
	// Get returns the bytes stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes the object stored under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys stored directly under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
