package driving

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// RetrievalService serves top-k passages to LLM callers.
type RetrievalService interface {
	// Retrieve returns the chunks most relevant to query from the user's
	// knowledge base. topK is clamped to [1,20]. Vector search is used when
	// configured and healthy, otherwise lexical search serves the call.
	Retrieve(ctx context.Context, userID, query string, topK int) (*domain.RetrievalResult, error)
}
