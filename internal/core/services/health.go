package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// pingTimeout bounds the embedding backend check.
const pingTimeout = 5 * time.Second

// HealthService checks that every document's bytes can still be found in
// blob storage. Documents are checked one at a time.
type HealthService struct {
	docStore  driven.DocumentStore
	blobStore driven.BlobStore
	embedder  driven.EmbeddingService
	keys      *KeyResolver
}

// HealthOption configures a HealthService.
type HealthOption func(*HealthService)

// WithEmbeddingCheck pings embedder on every check and reports whether it
// is reachable. A nil embedder is ignored.
func WithEmbeddingCheck(embedder driven.EmbeddingService) HealthOption {
	return func(s *HealthService) {
		s.embedder = embedder
	}
}

// NewHealthService creates a new health service.
func NewHealthService(docStore driven.DocumentStore, blobStore driven.BlobStore, opts ...HealthOption) *HealthService {
	s := &HealthService{
		docStore:  docStore,
		blobStore: blobStore,
		keys:      NewKeyResolver(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check walks the candidate keys of each document until one exists, then
// lists the user's canonical prefix for blobs no document resolves to.
func (s *HealthService) Check(ctx context.Context, userID string) (*domain.HealthReport, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	docs, err := s.docStore.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	results := make([]domain.DocumentHealth, 0, len(docs))
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, s.checkDocument(ctx, userID, &docs[i]))
	}

	report := domain.NewHealthReport(results)
	report.Orphans = s.orphans(ctx, userID, results)
	report.Summary.Orphaned = len(report.Orphans)
	if s.embedder != nil {
		report.Embedding = s.checkEmbedding(ctx)
	}
	return &report, nil
}

// orphans returns the keys under the user's prefix that no document was
// found at. A listing failure is logged and reported as no orphans.
func (s *HealthService) orphans(ctx context.Context, userID string, docs []domain.DocumentHealth) []string {
	keys, err := s.blobStore.List(ctx, UserPrefix(userID))
	if err != nil {
		logger.Warn("Listing blobs of %s: %v", userID, err)
		return []string{}
	}

	found := make(map[string]bool, len(docs))
	for i := range docs {
		found[docs[i].FoundKey] = true
	}
	orphans := []string{}
	for _, key := range keys {
		if !found[key] {
			orphans = append(orphans, key)
		}
	}
	return orphans
}

func (s *HealthService) checkEmbedding(ctx context.Context) *domain.BackendHealth {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	health := &domain.BackendHealth{Model: s.embedder.ModelName(), Reachable: true}
	if err := s.embedder.Ping(ctx); err != nil {
		logger.Warn("Embedding backend %s unreachable: %v", health.Model, err)
		health.Reachable = false
		health.Error = err.Error()
	}
	return health
}

func (s *HealthService) checkDocument(ctx context.Context, userID string, doc *domain.Document) domain.DocumentHealth {
	stored := NormaliseKey(doc.StorageKey)
	health := domain.DocumentHealth{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		StorageKey:   doc.StorageKey,
		MIMEType:     doc.MIMEType,
		LegacyPath:   IsLegacyPath(doc.StorageKey),
		CanonicalKey: CanonicalKey(userID, doc.Filename),
		Attempts:     []domain.KeyAttempt{},
		Issues:       []domain.HealthIssue{},
	}

	for _, key := range s.keys.Candidates(userID, doc.Filename, doc.StorageKey) {
		exists, err := s.blobStore.Exists(ctx, key)
		attempt := domain.KeyAttempt{Key: key, Exists: exists}
		if err != nil {
			attempt.Error = err.Error()
		}
		if len(health.Attempts) < domain.MaxHealthAttempts {
			health.Attempts = append(health.Attempts, attempt)
		}
		if exists {
			health.FoundKey = key
			break
		}
	}

	if health.LegacyPath {
		health.Issues = append(health.Issues, domain.IssueLegacyPath)
	}
	if stored != "" && !IsSafeKey(stored) {
		health.Issues = append(health.Issues, domain.IssueUnsafePath)
	}
	if health.FoundKey == "" {
		health.Issues = append(health.Issues, domain.IssueMissingInStore)
	} else if health.FoundKey != health.CanonicalKey {
		health.Issues = append(health.Issues, domain.IssueNonCanonicalKey)
	}
	return health
}
