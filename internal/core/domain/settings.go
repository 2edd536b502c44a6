package domain

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the backend that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderHuggingFace is the hosted HuggingFace inference API.
	EmbeddingProviderHuggingFace EmbeddingProvider = "huggingface"

	// EmbeddingProviderNone means no embedding backend is configured.
	// Retrieval uses lexical search only.
	EmbeddingProviderNone EmbeddingProvider = "none"
)

// IsLocal returns true if this provider runs locally.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderOllama
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderHuggingFace:
		return "HuggingFace (hosted)"
	case EmbeddingProviderNone:
		return "None (lexical search only)"
	default:
		return unknownDescription
	}
}

// Default embedding models.
const (
	DefaultOllamaEmbedModel = "nomic-embed-text"
	DefaultHFEmbedModel     = "sentence-transformers/all-MiniLM-L6-v2"
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// OllamaBaseURL enables the local provider when set.
	OllamaBaseURL string

	// OllamaModel is the Ollama embedding model.
	OllamaModel string

	// HFAPIKey enables the hosted provider when set.
	HFAPIKey string

	// HFModel is the HuggingFace feature-extraction model.
	HFModel string

	// HFBaseURL overrides the HuggingFace inference endpoint.
	HFBaseURL string

	// BatchSize is the number of chunk texts embedded per request.
	BatchSize int

	// Concurrency bounds in-flight embedding batches during indexing.
	Concurrency int

	// CacheSize is the number of query embeddings kept in memory.
	CacheSize int
}

// Provider resolves the active provider. The local provider takes
// priority when both are configured.
func (e EmbeddingSettings) Provider() EmbeddingProvider {
	if e.OllamaBaseURL != "" {
		return EmbeddingProviderOllama
	}
	if e.HFAPIKey != "" {
		return EmbeddingProviderHuggingFace
	}
	return EmbeddingProviderNone
}

// IsConfigured returns true if an embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider() != EmbeddingProviderNone
}

// Model returns the model name for the active provider.
func (e EmbeddingSettings) Model() string {
	switch e.Provider() {
	case EmbeddingProviderOllama:
		if e.OllamaModel != "" {
			return e.OllamaModel
		}
		return DefaultOllamaEmbedModel
	case EmbeddingProviderHuggingFace:
		if e.HFModel != "" {
			return e.HFModel
		}
		return DefaultHFEmbedModel
	default:
		return ""
	}
}

// DefaultVectorCollection is the collection used when none is configured.
const DefaultVectorCollection = "astraqa_kb"

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// URL is the Qdrant base URL. Empty disables vector search.
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name.
	Collection string
}

// IsConfigured returns true if a vector index endpoint is set.
func (v VectorIndexSettings) IsConfigured() bool {
	return v.URL != ""
}

// BlobSettings holds blob storage configuration.
type BlobSettings struct {
	// BaseURL is the storage root (e.g., file:///var/lib/astraqa/blobs, mem://localhost/kb).
	BaseURL string
}

// ChunkerSettings holds chunking parameters.
type ChunkerSettings struct {
	MaxChars     int
	OverlapChars int
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	VectorIndex VectorIndexSettings
	Blob        BlobSettings
	Chunker     ChunkerSettings
	Server      ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Embedding and vector backends are left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			BatchSize:   16,
			Concurrency: 2,
			CacheSize:   1000,
		},
		VectorIndex: VectorIndexSettings{
			Collection: DefaultVectorCollection,
		},
		Chunker: ChunkerSettings{
			MaxChars:     1500,
			OverlapChars: 200,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}
