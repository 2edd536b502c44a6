package domain

import (
	"fmt"
	"time"
)

// Document represents one uploaded artifact owned by a user.
// Deleting a document cascades to its Chunks and Jobs.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// UserID is the owning user.
	UserID string

	// Filename is the display filename supplied at upload.
	Filename string

	// MIMEType is the declared content type (e.g., "application/pdf").
	MIMEType string

	// Size is the byte size of the uploaded content.
	Size int64

	// StorageKey addresses the raw bytes in blob storage.
	StorageKey string

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time
}

// Chunk is a contiguous text window derived from one Document.
// Chunks of a document are always replaced as a whole, so Index is
// contiguous from 0.
type Chunk struct {
	// ID is deterministic: {documentID}-{index}.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// Text is the raw chunk text.
	Text string

	// ExternalID is the identifier used by the vector index, if any.
	ExternalID string
}

// ChunkID returns the deterministic chunk identifier for a document position.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}

// RetrievedChunk is the output unit of retrieval. It is never persisted.
// Score is backend specific and not comparable across retrieval modes.
type RetrievedChunk struct {
	ChunkID    string  `json:"id"`
	DocumentID string  `json:"fileId"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}
