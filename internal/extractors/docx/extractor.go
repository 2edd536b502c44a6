// Package docx extracts paragraph text from Office Open XML documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// MIMEType is the declared content type of DOCX uploads.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const documentPart = "word/document.xml"

var errMissingDocumentPart = errors.New("missing " + documentPart)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SupportedExtensions returns the filename extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".docx"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the paragraph text of word/document.xml joined by newlines.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
		}
		text, err := parseDocumentXML(rc)
		rc.Close()
		if err != nil {
			return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
		}
		return text, nil
	}

	return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: errMissingDocumentPart}
}

// parseDocumentXML walks the WordprocessingML token stream. Paragraphs
// anywhere in the body (including table cells) become one line each.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return "", err
				}
				current.WriteString(text)
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				paragraphs = append(paragraphs, current.String())
				inParagraph = false
			}
		}
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
