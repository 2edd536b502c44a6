// Package ai provides factory functions for creating the retrieval backends:
// the embedding service and the vector index.
package ai

import (
	"fmt"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/embedding/cached"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/embedding/huggingface"
	ollamaembed "github.com/custodia-labs/astraqa-kb/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// InitResult contains the result of retrieval backend initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Provider         domain.EmbeddingProvider
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to lexical-only retrieval.
}

// VectorEnabled reports whether both vector backends are available.
func (r *InitResult) VectorEnabled() bool {
	return r.EmbeddingService != nil && r.VectorIndex != nil
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
}

// Initialise creates the embedding service and vector index from settings.
// Missing configuration is not an error: the corresponding field stays nil
// and retrieval runs lexical only. Nothing is contacted here; an
// unreachable backend surfaces at call time and in the health check.
func Initialise(settings domain.AppSettings) *InitResult {
	result := &InitResult{Provider: settings.Embedding.Provider()}

	svc, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	} else if svc != nil {
		result.EmbeddingService = cached.New(svc, settings.Embedding.CacheSize)
	}

	index, err := CreateVectorIndex(&settings.VectorIndex)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	} else if index != nil {
		result.VectorIndex = index
	}

	return result
}

// CreateEmbeddingService creates the embedding service for the active provider.
// The local provider wins when both are configured. Returns nil for the
// "none" provider.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider() {
	case domain.EmbeddingProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.EmbeddingProviderHuggingFace:
		svc, err := createHuggingFaceEmbedding(settings)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider())
	}
}

// CreateVectorIndex creates the Qdrant client. Returns nil when no URL is set.
func CreateVectorIndex(settings *domain.VectorIndexSettings) (driven.VectorIndex, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	client, err := qdrant.New(qdrant.Config{
		URL:        settings.URL,
		APIKey:     settings.APIKey,
		Collection: settings.Collection,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL: settings.OllamaBaseURL,
		Model:   settings.Model(),
	})
}

// createHuggingFaceEmbedding creates a HuggingFace embedding service.
func createHuggingFaceEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := huggingface.NewEmbeddingService(huggingface.Config{
		APIKey:  settings.HFAPIKey,
		BaseURL: settings.HFBaseURL,
		Model:   settings.Model(),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
