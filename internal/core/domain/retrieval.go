package domain

// RetrievalMode names the backend that served a retrieval call.
type RetrievalMode string

// Retrieval modes.
const (
	// RetrievalModeVector is nearest-neighbour search over embeddings.
	RetrievalModeVector RetrievalMode = "vector"

	// RetrievalModeLexical is full-text relevance ranking, always available.
	RetrievalModeLexical RetrievalMode = "lexical"
)

// Retrieval limits.
const (
	DefaultTopK = 6
	MinTopK     = 1
	MaxTopK     = 20
)

// ClampTopK bounds k to [MinTopK, MaxTopK].
func ClampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// RetrievalResult is the sole output contract consumed by LLM callers.
type RetrievalResult struct {
	Mode   RetrievalMode    `json:"mode"`
	Chunks []RetrievedChunk `json:"chunks"`
}
