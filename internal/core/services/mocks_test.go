package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockBlobStore implements driven.BlobStore over a map.
type mockBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    []string
	deleted []string
	putErr  error
	getErr  error
	listErr error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, key)
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mockBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

func (m *mockBlobStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockBlobStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	var keys []string
	for k := range m.objects {
		if rest, ok := strings.CutPrefix(k, prefix); ok && !strings.Contains(rest, "/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu         sync.Mutex
	embedding  []float32
	embedErr   error
	pingErr    error
	embedCalls int
	batchCalls int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu            sync.Mutex
	hits          []driven.VectorHit
	searchErr     error
	ensureErr     error
	upsertErr     error
	deleteErr     error
	points        []driven.VectorPoint
	searchFilters []driven.VectorFilter
	deleteFilters []driven.VectorFilter
	ensuredDims   []int
}

func (m *mockVectorIndex) EnsureCollection(_ context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensuredDims = append(m.ensuredDims, dim)
	return m.ensureErr
}

func (m *mockVectorIndex) Upsert(_ context.Context, points []driven.VectorPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.points = append(m.points, points...)
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, limit int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchFilters = append(m.searchFilters, filter)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit < len(m.hits) {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

func (m *mockVectorIndex) DeleteByFilter(_ context.Context, filter driven.VectorFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteFilters = append(m.deleteFilters, filter)
	return m.deleteErr
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// spyLexicalIndex records calls before delegating.
type spyLexicalIndex struct {
	inner  driven.LexicalIndex
	err    error
	calls  int
	limits []int
}

func (s *spyLexicalIndex) Search(ctx context.Context, userID, query string, limit int) ([]domain.RetrievedChunk, error) {
	s.calls++
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Search(ctx, userID, query, limit)
}

// failingBuildStore injects infrastructure failures into a BuildStore.
type failingBuildStore struct {
	driven.BuildStore
	completeErr error
	createErr   error
}

func (f *failingBuildStore) CompleteJob(ctx context.Context, job *domain.Job, chunks []domain.Chunk) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	return f.BuildStore.CompleteJob(ctx, job, chunks)
}

func (f *failingBuildStore) CreateBuild(ctx context.Context, build *domain.Build) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.BuildStore.CreateBuild(ctx, build)
}

// --- Fixtures ---

var fixtureTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// addDocument registers a document whose bytes live at its canonical key.
// Later calls get later creation times.
func addDocument(t *testing.T, store *memory.Store, blobs *mockBlobStore, userID, filename, mimeType, content string) domain.Document {
	t.Helper()
	docs, err := store.DocumentStore().ListDocuments(context.Background(), userID)
	require.NoError(t, err)

	doc := domain.Document{
		ID:         userID + "-" + strings.ReplaceAll(filename, ".", "-"),
		UserID:     userID,
		Filename:   filename,
		MIMEType:   mimeType,
		Size:       int64(len(content)),
		StorageKey: CanonicalKey(userID, filename),
		CreatedAt:  fixtureTime.Add(time.Duration(len(docs)) * time.Minute),
	}
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), &doc))
	if blobs != nil {
		blobs.objects[doc.StorageKey] = []byte(content)
	}
	return doc
}

// seedChunks stores chunks for a document through a completed job.
func seedChunks(t *testing.T, store *memory.Store, doc domain.Document, texts ...string) {
	t.Helper()
	ctx := context.Background()
	builds := store.BuildStore()
	buildID := "seed-" + doc.ID
	require.NoError(t, builds.CreateBuild(ctx, &domain.Build{ID: buildID, UserID: doc.UserID, StartedAt: fixtureTime}))
	job := &domain.Job{ID: "job-" + doc.ID, BuildID: buildID, DocumentID: doc.ID}
	require.NoError(t, builds.CreateJob(ctx, job))

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{ID: domain.ChunkID(doc.ID, i), DocumentID: doc.ID, Index: i, Text: text}
	}
	require.NoError(t, builds.CompleteJob(ctx, job, chunks))
}
