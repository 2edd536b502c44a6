// Package qdrant provides a VectorIndex backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.VectorIndex = (*Client)(nil)

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 30 * time.Second

// Payload keys stored with every point.
const (
	payloadChunkID = "chunkId"
	payloadFileID  = "fileId"
	payloadUserID  = "userId"
)

var errEmptyFilter = errors.New("qdrant: filter requires a user id")

// Config holds configuration for the Qdrant client.
type Config struct {
	// URL is the Qdrant base URL (required).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection defaults to domain.DefaultVectorCollection.
	Collection string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Client talks to a single Qdrant collection.
type Client struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string

	mu    sync.Mutex
	known bool
}

// New creates a Qdrant client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultVectorCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}, nil
}

// Collection returns the collection name.
func (c *Client) Collection() string {
	return c.collection
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type matchValue struct {
	Value string `json:"value"`
}

type condition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type filter struct {
	Must []condition `json:"must"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      filter    `json:"filter"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

type deleteRequest struct {
	Filter filter `json:"filter"`
}

// EnsureCollection creates the collection sized to dim if it is absent.
// A successful check is remembered for the lifetime of the client.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("qdrant: invalid vector size %d", dim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known {
		return nil
	}

	status, _, err := c.do(ctx, http.MethodGet, c.collectionPath(""), nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		c.known = true
		return nil
	}

	status, body, err := c.do(ctx, http.MethodPut, c.collectionPath(""), createCollectionRequest{
		Vectors: vectorParams{Size: dim, Distance: "Cosine"},
	})
	if err != nil {
		return err
	}
	// 409 means another writer created it between the two calls.
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("qdrant: create collection failed (status %d): %s", status, body)
	}
	c.known = true
	return nil
}

// Upsert inserts or replaces points.
func (c *Client) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	req := upsertRequest{Points: make([]point, len(points))}
	for i, p := range points {
		req.Points[i] = point{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				payloadChunkID: p.ChunkID,
				payloadFileID:  p.DocumentID,
				payloadUserID:  p.UserID,
			},
		}
	}

	status, body, err := c.do(ctx, http.MethodPut, c.collectionPath("/points?wait=true"), req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant: upsert failed (status %d): %s", status, body)
	}
	return nil
}

// Search finds the nearest neighbours to vector that match f.
func (c *Client) Search(
	ctx context.Context,
	vector []float32,
	limit int,
	f driven.VectorFilter,
) ([]driven.VectorHit, error) {
	qf, err := buildFilter(f)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodPost, c.collectionPath("/points/search"), searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
		Filter:      qf,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant: search failed (status %d): %s", status, body)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: decode search response: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id := pointID(r.ID)
		chunkID, _ := r.Payload[payloadChunkID].(string)
		if chunkID == "" {
			chunkID = id
		}
		hits = append(hits, driven.VectorHit{ID: id, ChunkID: chunkID, Score: r.Score})
	}
	return hits, nil
}

// DeleteByFilter removes every point matching f.
// A missing collection has nothing to delete and is not an error.
func (c *Client) DeleteByFilter(ctx context.Context, f driven.VectorFilter) error {
	qf, err := buildFilter(f)
	if err != nil {
		return err
	}

	status, body, err := c.do(ctx, http.MethodPost, c.collectionPath("/points/delete?wait=true"), deleteRequest{Filter: qf})
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant: delete failed (status %d): %s", status, body)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func buildFilter(f driven.VectorFilter) (filter, error) {
	if f.UserID == "" {
		return filter{}, errEmptyFilter
	}
	qf := filter{Must: []condition{{Key: payloadUserID, Match: matchValue{Value: f.UserID}}}}
	if f.DocumentID != "" {
		qf.Must = append(qf.Must, condition{Key: payloadFileID, Match: matchValue{Value: f.DocumentID}})
	}
	return qf, nil
}

// pointID renders a point id that may be a JSON string or number.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *Client) collectionPath(suffix string) string {
	return c.baseURL + "/collections/" + url.PathEscape(c.collection) + suffix
}

// do sends a JSON request and returns the status code and body.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("qdrant: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
