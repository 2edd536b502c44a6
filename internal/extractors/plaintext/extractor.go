// Package plaintext is the fallback extractor. Anything not claimed by a
// format-specific extractor is read as UTF-8 text.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// binaryTypes are formats that would produce noise when read as text.
var binaryTypes = map[string]bool{
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
}

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/x-markdown",
		"text/csv",
		"text/html",
		"text/xml",
		"text/yaml",
		"text/x-go",
		"text/x-python",
		"text/javascript",
		"text/typescript",
		"application/xml",
		"application/x-yaml",
	}
}

// SupportedExtensions returns the filename extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".md", ".mdx", ".csv", ".yml", ".yaml", ".xml", ".html"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5
}

// Extract returns the content as UTF-8, replacing invalid byte sequences.
// Legacy binary office formats are rejected.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	mt := strings.ToLower(strings.TrimSpace(raw.MIMEType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if binaryTypes[mt] {
		return "", &domain.UnsupportedFormatError{MIMEType: raw.MIMEType, Filename: raw.Filename}
	}

	return strings.ToValidUTF8(string(raw.Content), "�"), nil
}
