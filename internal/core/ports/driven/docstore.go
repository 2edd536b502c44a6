package driven

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
// Every read is scoped to the owning user.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a user's document by ID.
	// Returns domain.ErrNotFound if the document does not exist or belongs to another user.
	GetDocument(ctx context.Context, userID, id string) (*domain.Document, error)

	// ListDocuments returns a user's documents, oldest first.
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)

	// DeleteDocument removes a user's document together with its chunks and jobs.
	DeleteDocument(ctx context.Context, userID, id string) error

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunksByIDs retrieves chunks by ID, restricted to documents owned by userID.
	// Unknown IDs and chunks of other users are silently omitted.
	GetChunksByIDs(ctx context.Context, userID string, ids []string) ([]domain.Chunk, error)
}
