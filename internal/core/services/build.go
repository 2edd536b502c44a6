package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Ensure BuildOrchestrator implements the interface.
var _ driving.BuildOrchestrator = (*BuildOrchestrator)(nil)

// maxFailureReasons is how many job failure messages a build reports.
const maxFailureReasons = 5

// Embedding fan-out defaults.
const (
	defaultEmbedBatchSize   = 16
	defaultEmbedConcurrency = 2
)

// pointNamespace seeds the deterministic vector point ids.
var pointNamespace = uuid.MustParse("8f4c2e0a-6b1d-5e7a-9c3f-2d8b7a1e4f60")

// PointID returns the vector point id for a chunk. Qdrant only accepts
// UUIDs or integers, so chunk ids are mapped through UUIDv5.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// BuildOrchestrator runs the extract, chunk, persist and index pipeline
// over every document a user owns.
type BuildOrchestrator struct {
	docStore         driven.DocumentStore
	buildStore       driven.BuildStore
	blobStore        driven.BlobStore
	extractors       driven.ExtractorRegistry
	chunker          driven.Chunker
	keys             *KeyResolver
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService

	batchSize   int
	concurrency int
	now         func() time.Time
}

// BuildOption configures the orchestrator.
type BuildOption func(*BuildOrchestrator)

// WithVectorIndexing enables best-effort vector indexing. Both arguments
// must be non-nil for it to take effect.
func WithVectorIndexing(index driven.VectorIndex, embedder driven.EmbeddingService) BuildOption {
	return func(o *BuildOrchestrator) {
		o.vectorIndex = index
		o.embeddingService = embedder
	}
}

// WithEmbeddingBatches sets the chunk texts per embedding request and the
// number of requests in flight.
func WithEmbeddingBatches(batchSize, concurrency int) BuildOption {
	return func(o *BuildOrchestrator) {
		if batchSize > 0 {
			o.batchSize = batchSize
		}
		if concurrency > 0 {
			o.concurrency = concurrency
		}
	}
}

// NewBuildOrchestrator creates a new build orchestrator.
func NewBuildOrchestrator(
	docStore driven.DocumentStore,
	buildStore driven.BuildStore,
	blobStore driven.BlobStore,
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	opts ...BuildOption,
) *BuildOrchestrator {
	o := &BuildOrchestrator{
		docStore:    docStore,
		buildStore:  buildStore,
		blobStore:   blobStore,
		extractors:  extractors,
		chunker:     chunker,
		keys:        NewKeyResolver(),
		batchSize:   defaultEmbedBatchSize,
		concurrency: defaultEmbedConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *BuildOrchestrator) vectorEnabled() bool {
	return o.vectorIndex != nil && o.embeddingService != nil
}

// RunBuild builds the user's knowledge base.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *BuildOrchestrator) RunBuild(ctx context.Context, userID string) (*domain.BuildResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	logger.Section("Knowledge Base Build")

	// 1. LIST DOCUMENTS
	docs, err := o.docStore.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		if err := o.saveStatus(ctx, userID, domain.KBStatusEmpty, ""); err != nil {
			return nil, err
		}
		logger.Debug("No documents for user %s", userID)
		return &domain.BuildResult{Status: domain.KBStatusEmpty}, domain.ErrNoDocuments
	}

	previous, err := o.buildStore.GetStatus(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get status: %w", err)
	}

	// 2. CREATE BUILD
	build := &domain.Build{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.BuildStatusBuilding,
		StartedAt: o.now(),
	}
	if err := o.buildStore.CreateBuild(ctx, build); err != nil {
		return nil, fmt.Errorf("create build: %w", err)
	}
	if err := o.saveStatus(ctx, userID, domain.KBStatusBuilding, build.ID); err != nil {
		return nil, o.abort(ctx, build, previous, err)
	}
	logger.Debug("Build %s started for %d documents", build.ID, len(docs))

	// 3. PROCESS DOCUMENTS SEQUENTIALLY
	var reasons []string
	for i := range docs {
		doc := &docs[i]
		if err := ctx.Err(); err != nil {
			return nil, o.abort(ctx, build, previous, err)
		}

		job := &domain.Job{
			ID:         uuid.NewString(),
			BuildID:    build.ID,
			DocumentID: doc.ID,
			Status:     domain.JobStatusProcessing,
		}
		if err := o.buildStore.CreateJob(ctx, job); err != nil {
			return nil, o.abort(ctx, build, previous, fmt.Errorf("create job: %w", err))
		}

		chunks, err := o.prepareDocument(ctx, userID, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, o.abort(ctx, build, previous, ctx.Err())
			}
			reason := fmt.Sprintf("%s: %v", doc.Filename, err)
			if !isolated(err) {
				// Storage outages abort the build.
				if err := o.buildStore.FailJob(ctx, job.ID, reason); err != nil {
					logger.Warn("Failing job %s: %v", job.ID, err)
				}
				return nil, o.abort(ctx, build, previous, err)
			}
			logger.Warn("Document %s failed: %v", doc.ID, err)
			if err := o.buildStore.FailJob(ctx, job.ID, reason); err != nil {
				return nil, o.abort(ctx, build, previous, fmt.Errorf("fail job: %w", err))
			}
			build.Failed++
			reasons = append(reasons, reason)
			continue
		}

		if err := o.buildStore.CompleteJob(ctx, job, chunks); err != nil {
			return nil, o.abort(ctx, build, previous, fmt.Errorf("complete job: %w", err))
		}

		o.indexVectors(ctx, userID, doc.ID, chunks)
		build.Processed++
		logger.Debug("Document %s: %d chunks", doc.ID, len(chunks))
	}

	// 4. FINALISE
	completed := o.now()
	build.CompletedAt = &completed
	build.Status = domain.BuildStatusReady
	kbStatus := domain.KBStatusReady
	if build.Processed == 0 {
		build.Status = domain.BuildStatusFailed
		kbStatus = domain.KBStatusEmpty
	}
	if len(reasons) > maxFailureReasons {
		reasons = reasons[:maxFailureReasons]
	}
	build.Error = strings.Join(reasons, "; ")

	if err := o.buildStore.UpdateBuild(ctx, build); err != nil {
		return nil, o.abort(ctx, build, previous, fmt.Errorf("update build: %w", err))
	}
	if err := o.saveStatus(ctx, userID, kbStatus, build.ID); err != nil {
		return nil, err
	}

	result := &domain.BuildResult{
		Status:    kbStatus,
		BuildID:   build.ID,
		Processed: build.Processed,
		Failed:    build.Failed,
		Errors:    reasons,
	}
	logger.Debug("Build %s finished: processed=%d failed=%d", build.ID, build.Processed, build.Failed)

	if build.Processed == 0 {
		return result, &domain.BuildFailedError{BuildID: build.ID, Reasons: reasons}
	}
	return result, nil
}

// extractError wraps any extractor failure. Extraction problems never
// outlive the document that caused them.
type extractError struct {
	err error
}

func (e *extractError) Error() string {
	return "extract: " + e.err.Error()
}

func (e *extractError) Unwrap() error {
	return e.err
}

// isolated reports whether a prepareDocument error belongs to that
// document alone. Storage errors other than a missing blob do not.
func isolated(err error) bool {
	var extract *extractError
	return errors.As(err, &extract) || domain.IsDocumentError(err)
}

// prepareDocument fetches, extracts and chunks one document.
func (o *BuildOrchestrator) prepareDocument(ctx context.Context, userID string, doc *domain.Document) ([]domain.Chunk, error) {
	content, err := o.fetch(ctx, userID, doc)
	if err != nil {
		return nil, err
	}

	text, err := o.extractors.Extract(ctx, &domain.RawDocument{
		Filename: doc.Filename,
		MIMEType: doc.MIMEType,
		Content:  content,
	})
	if err != nil {
		return nil, &extractError{err: err}
	}

	chunks := o.chunker.Chunks(doc.ID, text)
	if len(chunks) == 0 {
		return nil, domain.ErrNoExtractableContent
	}

	if o.vectorEnabled() {
		for i := range chunks {
			chunks[i].ExternalID = PointID(chunks[i].ID)
		}
	}
	return chunks, nil
}

// fetch reads the document bytes from its stored key, trying one fallback
// key when the stored key is missing.
func (o *BuildOrchestrator) fetch(ctx context.Context, userID string, doc *domain.Document) ([]byte, error) {
	stored := NormaliseKey(doc.StorageKey)
	if IsSafeKey(stored) {
		content, err := o.blobStore.Get(ctx, stored)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("fetch %s: %w", stored, err)
		}
	}

	fallback := o.keys.Fallback(userID, doc.Filename, doc.StorageKey)
	if fallback == "" {
		return nil, fmt.Errorf("fetch %s: %w", stored, domain.ErrNotFound)
	}
	logger.Debug("Stored key %q missing, trying %q", stored, fallback)
	content, err := o.blobStore.Get(ctx, fallback)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", fallback, err)
	}
	return content, nil
}

// indexVectors embeds and upserts the document's chunks. It never fails
// the build; errors are logged and the lexical index still serves the
// chunks.
func (o *BuildOrchestrator) indexVectors(ctx context.Context, userID, documentID string, chunks []domain.Chunk) {
	if !o.vectorEnabled() || len(chunks) == 0 {
		return
	}

	filter := driven.VectorFilter{UserID: userID, DocumentID: documentID}
	if err := o.vectorIndex.DeleteByFilter(ctx, filter); err != nil {
		logger.Warn("Vector cleanup for %s failed: %v", documentID, err)
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for start := 0; start < len(chunks); start += o.batchSize {
		end := min(start+o.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			embeddings, err := o.embeddingService.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(embeddings) != len(texts) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(embeddings))
			}
			copy(vectors[start:end], embeddings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Vector indexing for %s failed: %v", documentID, err)
		return
	}

	if err := o.vectorIndex.EnsureCollection(ctx, len(vectors[0])); err != nil {
		logger.Warn("Vector indexing for %s failed: %v", documentID, err)
		return
	}

	points := make([]driven.VectorPoint, len(chunks))
	for i, c := range chunks {
		id := c.ExternalID
		if id == "" {
			id = PointID(c.ID)
		}
		points[i] = driven.VectorPoint{
			ID:         id,
			Vector:     vectors[i],
			ChunkID:    c.ID,
			DocumentID: documentID,
			UserID:     userID,
		}
	}
	if err := o.vectorIndex.Upsert(ctx, points); err != nil {
		logger.Warn("Vector indexing for %s failed: %v", documentID, err)
	}
}

// abort marks the build failed and restores the previous status. Cleanup
// runs even when ctx is already cancelled.
func (o *BuildOrchestrator) abort(
	ctx context.Context, build *domain.Build, previous *domain.KnowledgeBaseStatus, cause error,
) error {
	cleanup := context.WithoutCancel(ctx)

	completed := o.now()
	build.Status = domain.BuildStatusFailed
	build.CompletedAt = &completed
	build.Error = cause.Error()
	if err := o.buildStore.UpdateBuild(cleanup, build); err != nil {
		logger.Warn("Marking build %s failed: %v", build.ID, err)
	}

	restore := domain.KnowledgeBaseStatus{UserID: build.UserID, Status: domain.KBStatusEmpty}
	if previous != nil {
		restore = *previous
		restore.UpdatedAt = time.Time{}
	}
	if err := o.buildStore.SaveStatus(cleanup, restore); err != nil {
		logger.Warn("Restoring status for %s: %v", build.UserID, err)
	}

	return fmt.Errorf("build %s aborted: %w", build.ID, cause)
}

func (o *BuildOrchestrator) saveStatus(ctx context.Context, userID string, status domain.KBStatus, buildID string) error {
	err := o.buildStore.SaveStatus(ctx, domain.KnowledgeBaseStatus{
		UserID:      userID,
		Status:      status,
		LastBuildID: buildID,
		UpdatedAt:   o.now(),
	})
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}
