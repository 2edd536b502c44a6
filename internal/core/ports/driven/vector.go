package driven

import "context"

// VectorIndex stores and searches dense vectors in a remote collection.
// It is a best-effort derived cache of the relational store, never the
// authority on whether a chunk exists.
type VectorIndex interface {
	// EnsureCollection creates the collection sized to dim if it is absent.
	EnsureCollection(ctx context.Context, dim int) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []VectorPoint) error

	// Search finds the nearest neighbours to vector that match filter.
	Search(ctx context.Context, vector []float32, limit int, filter VectorFilter) ([]VectorHit, error)

	// DeleteByFilter removes every point matching filter.
	DeleteByFilter(ctx context.Context, filter VectorFilter) error

	// Close releases resources.
	Close() error
}

// VectorPoint is one stored vector with its minimal payload.
// Chunk text is never stored in the index.
type VectorPoint struct {
	ID         string
	Vector     []float32
	ChunkID    string
	DocumentID string
	UserID     string
}

// VectorFilter restricts search and deletion. Empty fields are ignored,
// but a filter must set at least UserID.
type VectorFilter struct {
	UserID     string
	DocumentID string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the point identifier.
	ID string

	// ChunkID is taken from the payload, falling back to ID.
	ChunkID string

	// Score is the cosine similarity.
	Score float64
}
