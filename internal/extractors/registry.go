package extractors

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/docx"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/jsondoc"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/pdf"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/plaintext"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// fallbackPriorityLimit separates fallback extractors from format-specific ones.
const fallbackPriorityLimit = 10

// Registry selects an extractor by declared MIME type, then by filename
// extension, then falls back to the highest priority fallback extractor.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with every built-in extractor registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(jsondoc.New())
	r.Register(xlsx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor to the registry.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, extractor)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Extract transforms a raw document using the best matching extractor.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	extractor := r.Select(raw.MIMEType, raw.Filename)
	if extractor == nil {
		return "", &domain.UnsupportedFormatError{MIMEType: raw.MIMEType, Filename: raw.Filename}
	}
	return extractor.Extract(ctx, raw)
}

// Select returns the extractor that would handle a document, or nil.
func (r *Registry) Select(mimeType, filename string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mt := NormaliseMIMEType(mimeType)
	if mt != "" {
		for _, e := range r.extractors {
			if contains(e.SupportedMIMETypes(), mt) {
				return e
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" {
		for _, e := range r.extractors {
			if contains(e.SupportedExtensions(), ext) {
				return e
			}
		}
	}

	for _, e := range r.extractors {
		if e.Priority() < fallbackPriorityLimit {
			return e
		}
	}
	return nil
}

// NormaliseMIMEType lowercases a content type and strips its parameters.
func NormaliseMIMEType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
