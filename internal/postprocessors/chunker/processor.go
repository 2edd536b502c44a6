// Package chunker provides a fixed-size, overlapping text chunker.
package chunker

import (
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document text into fixed-size overlapping windows.
// It is pure: the same input always yields the same chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split cuts text into windows of at most chunkSize characters, advancing
// by chunkSize-overlap, and drops whitespace-only windows.
func (p *Processor) Split(text string) []string {
	return Split(text, p.chunkSize, p.overlap)
}

// Chunks splits text and assigns deterministic IDs ({documentID}-{index}).
// Indices count kept windows only, so they are contiguous from 0.
func (p *Processor) Chunks(documentID, text string) []domain.Chunk {
	parts := p.Split(text)
	if len(parts) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(documentID, i),
			DocumentID: documentID,
			Index:      i,
			Text:       part,
		}
	}
	return chunks
}

// Split is the greedy sliding window over the runes of text.
// For a text of L characters it yields ceil(max(0, L-overlap)/(maxChars-overlap))
// windows, and exactly one when 0 < L <= maxChars, before whitespace filtering.
// Callers must pass 0 <= overlap < maxChars.
func Split(text string, maxChars, overlap int) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 || maxChars <= 0 || overlap < 0 || overlap >= maxChars {
		return nil
	}

	step := maxChars - overlap
	estimated := (n / step) + 1
	out := make([]string, 0, estimated)

	for start := 0; start < n; start += step {
		end := start + maxChars
		if end > n {
			end = n
		}

		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			out = append(out, window)
		}

		if end == n {
			break
		}
	}

	return out
}
