// Package cached wraps an embedding service with an in-memory LRU cache for
// query embeddings.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// DefaultCacheSize is the default number of embeddings to cache.
// At 768 dimensions * 4 bytes * 1000 entries this is about 3MB.
const DefaultCacheSize = 1000

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService caches single-text embeddings. Batch calls come from
// indexing and pass straight through, so chunk texts never evict queries.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps inner with a cache holding up to size embeddings.
func New(inner driven.EmbeddingService, size int) *EmbeddingService {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &EmbeddingService{
		inner: inner,
		cache: cache,
	}
}

// cacheKey hashes text with the model name so a model switch never serves
// vectors of the wrong space.
func (s *EmbeddingService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + s.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding if present, otherwise computes and caches it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.cacheKey(text)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch delegates to the inner service without caching.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.inner.EmbedBatch(ctx, texts)
}

// Len returns the number of cached embeddings.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// ModelName returns the model identifier (passthrough to inner).
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the inner service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close purges the cache and closes the inner service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}

// Inner returns the wrapped service.
func (s *EmbeddingService) Inner() driven.EmbeddingService {
	return s.inner
}
