package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*EmbeddingService, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewEmbeddingService(Config{
		APIKey:            "hf_test",
		BaseURL:           srv.URL,
		Model:             "org/model",
		RequestsPerSecond: 1000,
		Burst:             100,
	})
	require.NoError(t, err)

	var waits []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return svc, &waits
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultMaxAttempts, svc.maxAttempts)
}

func TestEmbedBatch_SentenceVectors(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipeline/feature-extraction/org/model", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.Inputs)

		_, _ = w.Write([]byte(`[[1,2],[3,4]]`))
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
}

func TestEmbedBatch_MeanPoolsTokenVectors(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[[1,2],[3,6]],[[4,4]]]`))
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 4}, {4, 4}}, vecs)
}

func TestEmbed_SingleVector(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[0.25,0.5]`))
	})

	vec, err := svc.Embed(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5}, vec)
}

func TestEmbed_UnknownShape(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"loading"}`))
	})

	_, err := svc.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, errUnknownShape)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[1,2]]`))
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbed_RetriesTransientErrors(t *testing.T) {
	var calls int32
	svc, waits := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`[[1]]`))
		}
	})

	vec, err := svc.Embed(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, defaultRetryWait}, *waits)
}

func TestEmbed_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Embed(context.Background(), "q")

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(DefaultMaxAttempts), atomic.LoadInt32(&calls))
}

func TestEmbed_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	})

	_, err := svc.Embed(context.Background(), "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbed_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	svc, err := NewEmbeddingService(Config{APIKey: "hf_test", BaseURL: url})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "q")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", defaultRetryWait},
		{"abc", defaultRetryWait},
		{"0", defaultRetryWait},
		{"0.2", time.Second},
		{"5", 5 * time.Second},
		{"120", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.header))
		})
	}
}

func TestMeanPool(t *testing.T) {
	assert.Nil(t, meanPool(nil))
	assert.Equal(t, []float64{2, 3}, meanPool([][]float64{{1, 2}, {3, 4}}))
}
