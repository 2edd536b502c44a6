// Package huggingface provides an embedding service adapter using the
// HuggingFace feature-extraction inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api-inference.huggingface.co"
	DefaultModel             = domain.DefaultHFEmbedModel
	DefaultTimeout           = 60 * time.Second
	DefaultMaxAttempts       = 3
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 5
)

// Retry-After bounds.
const (
	defaultRetryWait = 1500 * time.Millisecond
	minRetryWait     = time.Second
	maxRetryWait     = 30 * time.Second
)

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 800

var (
	errMissingAPIKey = errors.New("huggingface: missing API key")
	errUnknownShape  = errors.New("huggingface: unrecognized embeddings response shape")
)

// Config holds configuration for the HuggingFace embedding service.
type Config struct {
	// APIKey is the bearer token (required).
	APIKey string

	// BaseURL is the inference API base URL.
	BaseURL string

	// Model is the feature-extraction model id.
	Model string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxAttempts bounds retries of 429 and 503 responses.
	MaxAttempts int

	// RequestsPerSecond and Burst configure client-side throttling.
	RequestsPerSecond float64
	Burst             int
}

// EmbeddingService generates embeddings using HuggingFace inference.
type EmbeddingService struct {
	client      *http.Client
	limiter     *rate.Limiter
	apiKey      string
	baseURL     string
	model       string
	maxAttempts int

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// NewEmbeddingService creates a new HuggingFace embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	return &EmbeddingService{
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepContext,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single request. Token-level output is
// mean-pooled to one vector per text.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, err := s.post(ctx, body)
	if err != nil {
		return nil, err
	}

	vecs, err := decodeEmbeddings(data)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("huggingface: expected %d embeddings, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// post sends the request, retrying 429 and 503 responses.
func (s *EmbeddingService) post(ctx context.Context, body []byte) ([]byte, error) {
	url := s.baseURL + "/pipeline/feature-extraction/" + s.model

	for attempt := 1; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: send request: %w", domain.ErrEmbeddingUnavailable, err)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			return data, nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable
		if retryable && attempt < s.maxAttempts {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			logger.Debug("huggingface: status %d, retrying in %s (attempt %d/%d)", resp.StatusCode, wait, attempt, s.maxAttempts)
			if err := s.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		err = fmt.Errorf("%w: huggingface error (status %d): %s",
			domain.ErrEmbeddingUnavailable, resp.StatusCode, truncate(string(data), maxErrorBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
		return nil, err
	}
}

// decodeEmbeddings accepts [][]float, [][][]float (token vectors) or
// []float (single input).
func decodeEmbeddings(data []byte) ([][]float32, error) {
	var batch [][]float64
	if err := json.Unmarshal(data, &batch); err == nil && len(batch) > 0 {
		return toFloat32(batch), nil
	}

	var tokens [][][]float64
	if err := json.Unmarshal(data, &tokens); err == nil && len(tokens) > 0 {
		pooled := make([][]float64, len(tokens))
		for i, tv := range tokens {
			pooled[i] = meanPool(tv)
		}
		return toFloat32(pooled), nil
	}

	var single []float64
	if err := json.Unmarshal(data, &single); err == nil && len(single) > 0 {
		return toFloat32([][]float64{single}), nil
	}

	return nil, errUnknownShape
}

// meanPool averages token vectors into one sentence vector.
func meanPool(tokenVectors [][]float64) []float64 {
	if len(tokenVectors) == 0 {
		return nil
	}
	dim := len(tokenVectors[0])
	sums := make([]float64, dim)
	for _, v := range tokenVectors {
		for i := 0; i < dim && i < len(v); i++ {
			sums[i] += v[i]
		}
	}
	for i := range sums {
		sums[i] /= float64(len(tokenVectors))
	}
	return sums
}

func toFloat32(in [][]float64) [][]float32 {
	out := make([][]float32, len(in))
	for i, vec := range in {
		out[i] = make([]float32, len(vec))
		for j, v := range vec {
			out[i][j] = float32(v)
		}
	}
	return out
}

// retryAfter parses a Retry-After header in seconds, clamped to [1s, 30s].
func retryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryWait
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || seconds <= 0 {
		return defaultRetryWait
	}
	wait := time.Duration(seconds * float64(time.Second))
	if wait < minRetryWait {
		return minRetryWait
	}
	if wait > maxRetryWait {
		return maxRetryWait
	}
	return wait
}

func truncate(s string, n int) string {
	if s == "" {
		return "(no body)"
	}
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key and model by embedding a one-word input.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("huggingface: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
