package driving

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// BuildOrchestrator runs the knowledge base build pipeline for a user.
type BuildOrchestrator interface {
	// RunBuild extracts, chunks, persists and indexes every document the user
	// owns. A user without documents gets domain.ErrNoDocuments and no Build
	// row; a build where every document fails returns *domain.BuildFailedError
	// alongside the result.
	RunBuild(ctx context.Context, userID string) (*domain.BuildResult, error)
}
