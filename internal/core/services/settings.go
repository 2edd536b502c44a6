package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyOllamaBaseURL    = "embedding.ollama_base_url"
	keyOllamaModel      = "embedding.ollama_model"
	keyHFAPIKey         = "embedding.hf_api_key"
	keyHFModel          = "embedding.hf_model"
	keyHFBaseURL        = "embedding.hf_base_url"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedConcurrency = "embedding.concurrency"
	keyEmbedCacheSize   = "embedding.cache_size"
	keyVectorURL        = "vector.url"
	keyVectorAPIKey     = "vector.api_key"
	keyVectorCollection = "vector.collection"
	keyBlobBaseURL      = "blob.base_url"
	keyChunkMaxChars    = "chunker.max_chars"
	keyChunkOverlap     = "chunker.overlap_chars"
	keyServerAddr       = "server.addr"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOllamaBaseURL    = "OLLAMA_BASE_URL"
	EnvOllamaModel      = "OLLAMA_EMBED_MODEL"
	EnvHFAPIKey         = "HF_API_KEY"
	EnvHFModel          = "HF_EMBEDDINGS_MODEL"
	EnvQdrantURL        = "QDRANT_URL"
	EnvQdrantAPIKey     = "QDRANT_API_KEY"
	EnvVectorCollection = "VECTOR_COLLECTION_NAME"
	EnvBlobURL          = "ASTRAQA_BLOB_URL"
)

var settingKeys = []string{
	keyOllamaBaseURL, keyOllamaModel,
	keyHFAPIKey, keyHFModel, keyHFBaseURL,
	keyEmbedBatchSize, keyEmbedConcurrency, keyEmbedCacheSize,
	keyVectorURL, keyVectorAPIKey, keyVectorCollection,
	keyBlobBaseURL,
	keyChunkMaxChars, keyChunkOverlap,
	keyServerAddr,
}

var intKeys = map[string]bool{
	keyEmbedBatchSize:   true,
	keyEmbedConcurrency: true,
	keyEmbedCacheSize:   true,
	keyChunkMaxChars:    true,
	keyChunkOverlap:     true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service reading the process
// environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves the effective application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	e := &settings.Embedding
	e.OllamaBaseURL = s.getString(EnvOllamaBaseURL, keyOllamaBaseURL, "")
	e.OllamaModel = s.getString(EnvOllamaModel, keyOllamaModel, "")
	e.HFAPIKey = s.getString(EnvHFAPIKey, keyHFAPIKey, "")
	e.HFModel = s.getString(EnvHFModel, keyHFModel, "")
	e.HFBaseURL = s.getString("", keyHFBaseURL, "")
	e.BatchSize = s.getInt(keyEmbedBatchSize, e.BatchSize)
	e.Concurrency = s.getInt(keyEmbedConcurrency, e.Concurrency)
	e.CacheSize = s.getInt(keyEmbedCacheSize, e.CacheSize)

	v := &settings.VectorIndex
	v.URL = s.getString(EnvQdrantURL, keyVectorURL, "")
	v.APIKey = s.getString(EnvQdrantAPIKey, keyVectorAPIKey, "")
	v.Collection = s.getString(EnvVectorCollection, keyVectorCollection, v.Collection)

	settings.Blob.BaseURL = s.getString(EnvBlobURL, keyBlobBaseURL, "")
	settings.Chunker.MaxChars = s.getInt(keyChunkMaxChars, settings.Chunker.MaxChars)
	settings.Chunker.OverlapChars = s.getInt(keyChunkOverlap, settings.Chunker.OverlapChars)
	settings.Server.Addr = s.getString("", keyServerAddr, settings.Server.Addr)

	if settings.Chunker.OverlapChars >= settings.Chunker.MaxChars {
		return nil, fmt.Errorf("%w: chunker.overlap_chars (%d) must be below chunker.max_chars (%d)",
			domain.ErrInvalidInput, settings.Chunker.OverlapChars, settings.Chunker.MaxChars)
	}

	return &settings, nil
}

// Set validates and persists one config value.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if !isSettingKey(key) {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	if intKeys[key] {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		if err := s.configStore.Set(key, n); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}

	if err := s.configStore.Set(key, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised config keys.
func (s *SettingsService) Keys() []string {
	return append([]string(nil), settingKeys...)
}

// getString returns the environment value, then the config value, then
// the fallback. An empty envName skips the environment.
func (s *SettingsService) getString(envName, key, fallback string) string {
	if envName != "" {
		if v := strings.TrimSpace(s.getenv(envName)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(s.configStore.GetString(key)); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) getInt(key string, fallback int) int {
	if v := s.configStore.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

func isSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k == key {
			return true
		}
	}
	return false
}
