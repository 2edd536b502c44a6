package driven

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// BuildStore persists builds, jobs and the per-user knowledge base status.
type BuildStore interface {
	// CreateBuild inserts a new build row.
	CreateBuild(ctx context.Context, build *domain.Build) error

	// UpdateBuild stores status, counters, completion time and error summary.
	UpdateBuild(ctx context.Context, build *domain.Build) error

	// LatestBuild returns the user's most recent build by start time.
	// Returns domain.ErrNotFound if the user has never built.
	LatestBuild(ctx context.Context, userID string) (*domain.Build, error)

	// CreateJob inserts a new job row.
	CreateJob(ctx context.Context, job *domain.Job) error

	// FailJob marks a job failed with the given reason.
	FailJob(ctx context.Context, jobID, reason string) error

	// CompleteJob atomically deletes all existing chunks of the job's document,
	// inserts chunks and marks the job done. Either all three writes are
	// applied or none is.
	CompleteJob(ctx context.Context, job *domain.Job, chunks []domain.Chunk) error

	// ListJobs returns the jobs of a build in creation order.
	ListJobs(ctx context.Context, buildID string) ([]domain.Job, error)

	// SaveStatus upserts the user's knowledge base status.
	SaveStatus(ctx context.Context, status domain.KnowledgeBaseStatus) error

	// GetStatus returns the user's knowledge base status.
	// Returns domain.ErrNotFound if none was recorded.
	GetStatus(ctx context.Context, userID string) (*domain.KnowledgeBaseStatus, error)

	// Purge deletes the user's status, chunks, jobs, builds and documents in
	// one transaction.
	Purge(ctx context.Context, userID string) error
}
