package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Ensure KnowledgeBaseService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// Preview limits.
const (
	MaxPreviewChars   = 12000
	previewTruncation = "\n\n…(truncated)"
	noPreviewMessage  = "Preview is not available for this file type."
	defaultMIMEType   = "application/octet-stream"
)

var previewableExtensions = map[string]bool{
	".md": true, ".mdx": true, ".txt": true, ".json": true, ".yml": true,
	".yaml": true, ".csv": true, ".xml": true, ".html": true, ".js": true,
	".jsx": true, ".ts": true, ".tsx": true, ".py": true, ".java": true,
	".cs": true, ".rb": true, ".go": true, ".php": true, ".sql": true,
}

// KnowledgeBaseService manages a user's documents and reports knowledge
// base state.
type KnowledgeBaseService struct {
	docStore    driven.DocumentStore
	buildStore  driven.BuildStore
	blobStore   driven.BlobStore
	vectorIndex driven.VectorIndex
	keys        *KeyResolver
}

// NewKnowledgeBaseService creates a new knowledge base service.
// The vectorIndex parameter is optional (can be nil).
func NewKnowledgeBaseService(
	docStore driven.DocumentStore,
	buildStore driven.BuildStore,
	blobStore driven.BlobStore,
	vectorIndex driven.VectorIndex,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		docStore:    docStore,
		buildStore:  buildStore,
		blobStore:   blobStore,
		vectorIndex: vectorIndex,
		keys:        NewKeyResolver(),
	}
}

// Upload stores the bytes under the canonical key and registers the
// document. Uploading a filename the user already has replaces that
// document's bytes and metadata.
func (s *KnowledgeBaseService) Upload(ctx context.Context, userID string, req driving.UploadRequest) (*domain.Document, error) {
	filename := base(strings.TrimSpace(req.Filename))
	if userID == "" || filename == "" || filename == "." {
		return nil, domain.ErrInvalidInput
	}
	mimeType := strings.TrimSpace(req.MIMEType)
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	key := CanonicalKey(userID, filename)
	if !IsSafeKey(key) {
		return nil, fmt.Errorf("%w: filename %q", domain.ErrInvalidInput, req.Filename)
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		Filename:   filename,
		MIMEType:   mimeType,
		Size:       int64(len(req.Content)),
		StorageKey: key,
		CreatedAt:  time.Now().UTC(),
	}

	existing, err := s.docStore.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range existing {
		if existing[i].Filename == filename {
			doc.ID = existing[i].ID
			doc.CreatedAt = existing[i].CreatedAt
			break
		}
	}

	if err := s.blobStore.Put(ctx, key, req.Content, mimeType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Debug("Uploaded %s as %s (%d bytes)", filename, doc.ID, doc.Size)
	return doc, nil
}

// State returns the cached status, the last build and the user's
// documents, newest first.
func (s *KnowledgeBaseService) State(ctx context.Context, userID string) (*domain.KnowledgeBaseState, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	state := &domain.KnowledgeBaseState{Status: domain.KBStatusEmpty}

	status, err := s.buildStore.GetStatus(ctx, userID)
	switch {
	case err == nil:
		state.Status = status.Status
		updated := status.UpdatedAt
		state.UpdatedAt = &updated
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get status: %w", err)
	}

	build, err := s.buildStore.LatestBuild(ctx, userID)
	switch {
	case err == nil:
		state.LastBuild = build
		if rate, ok := build.SuccessRate(); ok {
			state.SuccessRate = &rate
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("latest build: %w", err)
	}

	docs, err := s.docStore.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	state.Documents = make([]domain.Document, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		state.Documents = append(state.Documents, docs[i])
	}
	return state, nil
}

// Preview returns the leading text of a text-like document.
func (s *KnowledgeBaseService) Preview(ctx context.Context, userID, documentID string) (*driving.Preview, error) {
	doc, err := s.docStore.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	preview := &driving.Preview{Document: *doc}
	if !CanPreview(doc.MIMEType, doc.Filename) {
		preview.Message = noPreviewMessage
		return preview, nil
	}

	content, err := s.readBlob(ctx, userID, doc)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text := TruncatePreview(strings.ToValidUTF8(string(content), "�"))
	preview.Text = &text
	return preview, nil
}

// DeleteDocument removes the document rows, then its blob and vectors on
// a best-effort basis.
func (s *KnowledgeBaseService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.docStore.DeleteDocument(ctx, userID, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.deleteBlob(ctx, doc.StorageKey)
	if s.vectorIndex != nil {
		filter := driven.VectorFilter{UserID: userID, DocumentID: documentID}
		if err := s.vectorIndex.DeleteByFilter(ctx, filter); err != nil {
			logger.Warn("Deleting vectors for %s: %v", documentID, err)
		}
	}
	return nil
}

// Reset removes everything the user has stored.
func (s *KnowledgeBaseService) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}
	docs, err := s.docStore.ListDocuments(ctx, userID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if err := s.buildStore.Purge(ctx, userID); err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteByFilter(ctx, driven.VectorFilter{UserID: userID}); err != nil {
			logger.Warn("Deleting vectors for %s: %v", userID, err)
		}
	}
	for i := range docs {
		s.deleteBlob(ctx, docs[i].StorageKey)
	}
	logger.Debug("Reset knowledge base for %s (%d documents)", userID, len(docs))
	return nil
}

// readBlob reads the stored key, then each candidate key in turn.
func (s *KnowledgeBaseService) readBlob(ctx context.Context, userID string, doc *domain.Document) ([]byte, error) {
	var lastErr error = domain.ErrNotFound
	for _, key := range s.keys.Candidates(userID, doc.Filename, doc.StorageKey) {
		content, err := s.blobStore.Get(ctx, key)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *KnowledgeBaseService) deleteBlob(ctx context.Context, key string) {
	key = NormaliseKey(key)
	if !IsSafeKey(key) {
		return
	}
	if err := s.blobStore.Delete(ctx, key); err != nil {
		logger.Warn("Deleting blob %s: %v", key, err)
	}
}

// CanPreview reports whether a document is text-like enough to preview.
func CanPreview(mimeType, filename string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(mimeType, "text/") || mimeType == "application/json" || mimeType == "application/xml" {
		return true
	}
	return previewableExtensions[strings.ToLower(path.Ext(filename))]
}

// TruncatePreview cuts text to MaxPreviewChars characters and appends a
// truncation marker when anything was dropped.
func TruncatePreview(text string) string {
	count := 0
	for i := range text {
		if count == MaxPreviewChars {
			return text[:i] + previewTruncation
		}
		count++
	}
	return text
}
