// Package xlsx extracts worksheet rows from Excel workbooks using excelize.
package xlsx

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// MIMEType is the declared content type of XLSX uploads.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates a new XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SupportedExtensions returns the filename extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".xlsx"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract renders every sheet as a "Sheet: name" line followed by its rows,
// one line per row with cells separated by tabs. Empty rows are skipped.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", &domain.CorruptDocumentError{Filename: raw.Filename, Err: err}
		}
		if len(rows) == 0 {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Sheet: ")
		sb.WriteString(sheet)

		for _, row := range rows {
			line := strings.Join(row, "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString("\n")
			sb.WriteString(line)
		}
	}

	return sb.String(), nil
}
