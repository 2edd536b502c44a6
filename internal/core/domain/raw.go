package domain

// RawDocument represents opaque bytes fetched from blob storage.
// It is the extractor's input.
type RawDocument struct {
	// Filename is the display filename, used as a format hint.
	Filename string

	// MIMEType is the declared content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
