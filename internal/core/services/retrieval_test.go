package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// retrievalFixture holds two users with one indexed document each.
type retrievalFixture struct {
	store   *memory.Store
	lexical *spyLexicalIndex
	alice   domain.Document
	bob     domain.Document
}

func newRetrievalFixture(t *testing.T) *retrievalFixture {
	t.Helper()
	store := memory.NewStore()
	alice := addDocument(t, store, nil, "alice", "policy.txt", "text/plain", "")
	seedChunks(t, store, alice,
		"Remote work is allowed on Fridays.",
		"Expense reports are due monthly.",
		"Remote equipment is reimbursed.",
	)
	bob := addDocument(t, store, nil, "bob", "secret.txt", "text/plain", "")
	seedChunks(t, store, bob, "Bob's remote work secret.")

	return &retrievalFixture{
		store:   store,
		lexical: &spyLexicalIndex{inner: store.LexicalIndex()},
		alice:   alice,
		bob:     bob,
	}
}

func (f *retrievalFixture) service(index driven.VectorIndex, embedder driven.EmbeddingService) *RetrievalService {
	return NewRetrievalService(f.store.DocumentStore(), f.lexical, index, embedder)
}

func TestRetrievalService_BlankQuery(t *testing.T) {
	f := newRetrievalFixture(t)
	embedder := &mockEmbeddingService{embedding: []float32{1}}
	svc := f.service(&mockVectorIndex{}, embedder)

	for _, q := range []string{"", "   ", "\n\t"} {
		result, err := svc.Retrieve(context.Background(), "alice", q, 5)
		require.NoError(t, err)
		assert.Equal(t, domain.RetrievalModeLexical, result.Mode)
		assert.NotNil(t, result.Chunks)
		assert.Empty(t, result.Chunks)
	}
	assert.Zero(t, f.lexical.calls)
	assert.Zero(t, embedder.embedCalls)
}

func TestRetrievalService_InvalidUser(t *testing.T) {
	f := newRetrievalFixture(t)
	_, err := f.service(nil, nil).Retrieve(context.Background(), "", "remote", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_LexicalWithoutVector(t *testing.T) {
	f := newRetrievalFixture(t)

	result, err := f.service(nil, nil).Retrieve(context.Background(), "alice", "remote", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeLexical, result.Mode)
	require.Len(t, result.Chunks, 2)
	for _, c := range result.Chunks {
		assert.Equal(t, f.alice.ID, c.DocumentID)
	}
}

func TestRetrievalService_LexicalNoMatches(t *testing.T) {
	f := newRetrievalFixture(t)

	result, err := f.service(nil, nil).Retrieve(context.Background(), "alice", "zebra", 5)

	require.NoError(t, err)
	assert.NotNil(t, result.Chunks)
	assert.Empty(t, result.Chunks)
}

func TestRetrievalService_LexicalError(t *testing.T) {
	f := newRetrievalFixture(t)
	f.lexical.err = errors.New("database is locked")

	_, err := f.service(nil, nil).Retrieve(context.Background(), "alice", "remote", 5)
	assert.ErrorContains(t, err, "database is locked")
}

func TestRetrievalService_Vector(t *testing.T) {
	f := newRetrievalFixture(t)
	index := &mockVectorIndex{hits: []driven.VectorHit{
		{ID: "p1", ChunkID: domain.ChunkID(f.alice.ID, 1), Score: 0.4},
		{ID: "p2", ChunkID: domain.ChunkID(f.alice.ID, 0), Score: 0.9},
		{ID: "p3", ChunkID: domain.ChunkID(f.alice.ID, 0), Score: 0.1},
	}}
	embedder := &mockEmbeddingService{embedding: []float32{0.5, 0.5}}

	result, err := f.service(index, embedder).Retrieve(context.Background(), "alice", "working from home", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeVector, result.Mode)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, domain.ChunkID(f.alice.ID, 0), result.Chunks[0].ChunkID)
	assert.InDelta(t, 0.9, result.Chunks[0].Score, 1e-9)
	assert.Equal(t, "Remote work is allowed on Fridays.", result.Chunks[0].Text)
	assert.Equal(t, domain.ChunkID(f.alice.ID, 1), result.Chunks[1].ChunkID)

	assert.Equal(t, []driven.VectorFilter{{UserID: "alice"}}, index.searchFilters)
	assert.Equal(t, []int{2}, index.ensuredDims)
	assert.Zero(t, f.lexical.calls)
}

func TestRetrievalService_VectorNeverLeaksOtherUsers(t *testing.T) {
	f := newRetrievalFixture(t)
	// A stale point pointing at Bob's chunk must not hydrate for Alice.
	index := &mockVectorIndex{hits: []driven.VectorHit{
		{ID: "p1", ChunkID: domain.ChunkID(f.bob.ID, 0), Score: 0.99},
		{ID: "p2", ChunkID: domain.ChunkID(f.alice.ID, 2), Score: 0.5},
	}}
	embedder := &mockEmbeddingService{embedding: []float32{1}}

	result, err := f.service(index, embedder).Retrieve(context.Background(), "alice", "secret", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeVector, result.Mode)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, f.alice.ID, result.Chunks[0].DocumentID)
}

func TestRetrievalService_VectorFallsBackToLexical(t *testing.T) {
	tests := []struct {
		name     string
		index    *mockVectorIndex
		embedder *mockEmbeddingService
	}{
		{
			name:     "embedding error",
			index:    &mockVectorIndex{},
			embedder: &mockEmbeddingService{embedErr: errors.New("connection refused")},
		},
		{
			name:     "empty embedding",
			index:    &mockVectorIndex{},
			embedder: &mockEmbeddingService{},
		},
		{
			name:     "ensure collection error",
			index:    &mockVectorIndex{ensureErr: errors.New("unauthorized")},
			embedder: &mockEmbeddingService{embedding: []float32{1}},
		},
		{
			name:     "search error",
			index:    &mockVectorIndex{searchErr: errors.New("timeout")},
			embedder: &mockEmbeddingService{embedding: []float32{1}},
		},
		{
			name:     "zero hits",
			index:    &mockVectorIndex{},
			embedder: &mockEmbeddingService{embedding: []float32{1}},
		},
		{
			name: "hits without rows",
			index: &mockVectorIndex{hits: []driven.VectorHit{
				{ID: "p1", ChunkID: "deleted-doc-0", Score: 0.8},
			}},
			embedder: &mockEmbeddingService{embedding: []float32{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRetrievalFixture(t)

			result, err := f.service(tt.index, tt.embedder).Retrieve(context.Background(), "alice", "remote", 5)

			require.NoError(t, err)
			assert.Equal(t, domain.RetrievalModeLexical, result.Mode)
			assert.Len(t, result.Chunks, 2)
			assert.Equal(t, 1, f.lexical.calls)
		})
	}
}

func TestRetrievalService_LexicalTenantIsolation(t *testing.T) {
	f := newRetrievalFixture(t)

	result, err := f.service(nil, nil).Retrieve(context.Background(), "bob", "remote", 5)

	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, f.bob.ID, result.Chunks[0].DocumentID)
}

func TestRetrievalService_TopK(t *testing.T) {
	tests := []struct {
		topK int
		want int
	}{
		{0, domain.DefaultTopK},
		{-3, domain.DefaultTopK},
		{1, 1},
		{20, 20},
		{500, domain.MaxTopK},
	}

	for _, tt := range tests {
		f := newRetrievalFixture(t)
		_, err := f.service(nil, nil).Retrieve(context.Background(), "alice", "remote", tt.topK)
		require.NoError(t, err)
		assert.Equal(t, []int{tt.want}, f.lexical.limits, "topK %d", tt.topK)
	}
}

func TestRetrievalService_VectorTrimsToTopK(t *testing.T) {
	f := newRetrievalFixture(t)
	index := &mockVectorIndex{hits: []driven.VectorHit{
		{ChunkID: domain.ChunkID(f.alice.ID, 0), Score: 0.3},
		{ChunkID: domain.ChunkID(f.alice.ID, 1), Score: 0.2},
		{ChunkID: domain.ChunkID(f.alice.ID, 2), Score: 0.1},
	}}
	embedder := &mockEmbeddingService{embedding: []float32{1}}

	result, err := f.service(index, embedder).Retrieve(context.Background(), "alice", "anything", 2)

	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
}
