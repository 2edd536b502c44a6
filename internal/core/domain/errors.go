package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles a document type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoDocuments indicates a build was requested for a user without documents.
	ErrNoDocuments = errors.New("no documents uploaded")

	// ErrBuildFailed indicates every document of a build failed.
	ErrBuildFailed = errors.New("knowledge base build failed")

	// ErrNoExtractableContent indicates a document produced no non-empty chunks.
	ErrNoExtractableContent = errors.New("no extractable content")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or cannot be reached. Retrieval falls back to lexical search.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// UnsupportedFormatError reports a document format no extractor can read.
type UnsupportedFormatError struct {
	MIMEType string
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (%s)", e.MIMEType, e.Filename)
}

// Unwrap lets callers match with errors.Is(err, ErrUnsupportedType).
func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedType
}

// CorruptDocumentError reports a document whose bytes could not be parsed.
type CorruptDocumentError struct {
	Filename string
	Err      error
}

func (e *CorruptDocumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("corrupt document %s", e.Filename)
	}
	return fmt.Sprintf("corrupt document %s: %v", e.Filename, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}

// BuildFailedError is returned when a build processed no documents.
// Reasons holds the first few job failure messages.
type BuildFailedError struct {
	BuildID string
	Reasons []string
}

func (e *BuildFailedError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrBuildFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrBuildFailed, strings.Join(e.Reasons, "; "))
}

func (e *BuildFailedError) Unwrap() error {
	return ErrBuildFailed
}

// IsClientError reports whether err was caused by the caller's request or
// data rather than by infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoDocuments) ||
		errors.Is(err, ErrBuildFailed) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound)
}

// IsDocumentError reports whether err is isolated to a single document.
// Such errors are recorded on the Job and never abort a build.
func IsDocumentError(err error) bool {
	var unsupported *UnsupportedFormatError
	var corrupt *CorruptDocumentError
	return errors.As(err, &unsupported) ||
		errors.As(err, &corrupt) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoExtractableContent)
}
