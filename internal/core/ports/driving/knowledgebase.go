package driving

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// UploadRequest is one file to add to a user's knowledge base.
type UploadRequest struct {
	Filename string
	MIMEType string
	Content  []byte
}

// Preview is the text preview of a document.
// Text is nil when the document type cannot be previewed.
type Preview struct {
	Document domain.Document
	Text     *string
	Message  string
}

// KnowledgeBaseService manages a user's documents and knowledge base state.
type KnowledgeBaseService interface {
	// Upload stores the file bytes and registers a new document.
	Upload(ctx context.Context, userID string, req UploadRequest) (*domain.Document, error)

	// State returns the cached status, last build and documents.
	State(ctx context.Context, userID string) (*domain.KnowledgeBaseState, error)

	// Preview returns up to the first 12000 characters of a text-like document.
	Preview(ctx context.Context, userID, documentID string) (*Preview, error)

	// DeleteDocument removes a document, its chunks, jobs, blob and vectors.
	DeleteDocument(ctx context.Context, userID, documentID string) error

	// Reset removes every document, chunk, job, build and status of the user.
	Reset(ctx context.Context, userID string) error
}

// HealthService diagnoses blob storage drift for a user's documents.
type HealthService interface {
	// Check walks every document's candidate storage keys.
	Check(ctx context.Context, userID string) (*domain.HealthReport, error)
}
