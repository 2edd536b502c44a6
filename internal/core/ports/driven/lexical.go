package driven

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// LexicalIndex ranks persisted chunks by full-text relevance.
// It needs nothing beyond the relational store and is always available.
type LexicalIndex interface {
	// Search returns up to limit chunks from the user's documents, best match
	// first. Scores are backend rank scores where higher is better.
	Search(ctx context.Context, userID, query string, limit int) ([]domain.RetrievedChunk, error)
}
