// Package pdf extracts page text from PDF documents using ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// MIMEType is the declared content type of PDF uploads.
const MIMEType = "application/pdf"

var errEmptyPDF = errors.New("empty pdf")

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SupportedExtensions returns the filename extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the text of every readable page joined by newlines.
// Pages that fail to decode are skipped.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (text string, err error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if len(raw.Content) == 0 {
		return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: errEmptyPDF}
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &domain.CorruptDocumentError{Filename: raw.Filename, Err: fmt.Errorf("pdf parser: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := pageText(page)
		if err != nil {
			logger.Debug("pdf %s: skipping page %d: %v", raw.Filename, i, err)
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	return page.GetPlainText(fonts)
}
