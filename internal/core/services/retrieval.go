package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// errNoVectorResults sends an empty vector search to the lexical path.
var errNoVectorResults = errors.New("vector search returned no usable chunks")

// RetrievalService serves top-k chunks, preferring vector search and
// falling back to the lexical index on any vector failure.
type RetrievalService struct {
	docStore         driven.DocumentStore
	lexical          driven.LexicalIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
}

// NewRetrievalService creates a new retrieval service.
// The vectorIndex and embeddingService parameters are optional (can be nil);
// vector search is used only when both are set.
func NewRetrievalService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) *RetrievalService {
	return &RetrievalService{
		docStore:         docStore,
		lexical:          lexical,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
	}
}

// Retrieve returns the chunks most relevant to query. A topK of zero or
// less selects domain.DefaultTopK.
func (s *RetrievalService) Retrieve(ctx context.Context, userID, query string, topK int) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Blank query, returning no chunks")
		return &domain.RetrievalResult{Mode: domain.RetrievalModeLexical, Chunks: []domain.RetrievedChunk{}}, nil
	}
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	topK = domain.ClampTopK(topK)
	logger.Debug("Query: %q, topK: %d", query, topK)

	if s.vectorIndex != nil && s.embeddingService != nil {
		chunks, err := s.vectorSearch(ctx, userID, query, topK)
		if err == nil {
			logger.Debug("Vector search: %d chunks", len(chunks))
			return &domain.RetrievalResult{Mode: domain.RetrievalModeVector, Chunks: chunks}, nil
		}
		logger.Warn("Vector retrieval failed, using lexical search: %v", err)
	}

	chunks, err := s.lexical.Search(ctx, userID, query, topK)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	logger.Debug("Lexical search: %d chunks", len(chunks))
	return &domain.RetrievalResult{Mode: domain.RetrievalModeLexical, Chunks: chunks}, nil
}

// vectorSearch embeds the query, searches the user's points and hydrates
// the hits from the relational store.
func (s *RetrievalService) vectorSearch(ctx context.Context, userID, query string, topK int) ([]domain.RetrievedChunk, error) {
	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embed query: %w", errNoVectorResults)
	}

	if err := s.vectorIndex.EnsureCollection(ctx, len(embedding)); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	hits, err := s.vectorIndex.Search(ctx, embedding, topK, driven.VectorFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, errNoVectorResults
	}

	scores := make(map[string]float64, len(hits))
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		chunkID := hit.ChunkID
		if chunkID == "" {
			chunkID = hit.ID
		}
		if _, dup := scores[chunkID]; dup {
			continue
		}
		scores[chunkID] = hit.Score
		ids = append(ids, chunkID)
	}

	// The store scopes hydration to the user, so a stale or foreign point
	// can never surface another user's text.
	rows, err := s.docStore.GetChunksByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}
	if len(rows) == 0 {
		return nil, errNoVectorResults
	}

	results := make([]domain.RetrievedChunk, 0, len(rows))
	for _, c := range rows {
		results = append(results, domain.RetrievedChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Score:      scores[c.ID],
			Text:       c.Text,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
