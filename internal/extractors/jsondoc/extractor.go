// Package jsondoc extracts JSON documents as indented text.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles JSON documents.
type Extractor struct{}

// New creates a new JSON extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/json"}
}

// SupportedExtensions returns the filename extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".json"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract re-serialises the document with two-space indentation. Content
// that does not parse is returned as-is rather than failing.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw.Content, "", "  "); err != nil {
		return strings.ToValidUTF8(string(raw.Content), "�"), nil
	}
	return buf.String(), nil
}
