package driven

import "github.com/custodia-labs/astraqa-kb/internal/core/domain"

// Chunker splits extracted document text into ordered chunks.
// Implementations must be deterministic.
type Chunker interface {
	// Chunks returns the non-empty windows of text with ids
	// {documentID}-{index} and contiguous indices from 0.
	Chunks(documentID, text string) []domain.Chunk
}
