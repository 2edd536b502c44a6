package driven

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// Extractor converts a raw document into plain text.
// Each extractor handles specific MIME types (e.g., PDF, DOCX).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns filename extensions used as a fallback hint
	// when the declared MIME type is generic (e.g., ".pdf").
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the document text. It has no side effects.
	// Errors are domain.UnsupportedFormatError or domain.CorruptDocumentError.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}

// ExtractorRegistry selects the appropriate extractor for a document.
type ExtractorRegistry interface {
	// Extract transforms a raw document using the best matching extractor.
	// Selection: declared MIME type, then filename extension, then fallback.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
