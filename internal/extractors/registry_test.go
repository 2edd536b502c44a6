package extractors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/docx"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/jsondoc"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/pdf"
	"github.com/custodia-labs/astraqa-kb/internal/extractors/plaintext"
)

type stubExtractor struct {
	mimeTypes  []string
	extensions []string
	priority   int
	output     string
}

func (s *stubExtractor) SupportedMIMETypes() []string  { return s.mimeTypes }
func (s *stubExtractor) SupportedExtensions() []string { return s.extensions }
func (s *stubExtractor) Priority() int                 { return s.priority }
func (s *stubExtractor) Extract(_ context.Context, _ *domain.RawDocument) (string, error) {
	return s.output, nil
}

func TestSelect(t *testing.T) {
	r := Default()

	tests := []struct {
		name     string
		mimeType string
		filename string
		want     any
	}{
		{"declared pdf", "application/pdf", "manual.bin", &pdf.Extractor{}},
		{"declared docx", docx.MIMEType, "handbook", &docx.Extractor{}},
		{"json with charset", "application/json; charset=utf-8", "a.txt", &jsondoc.Extractor{}},
		{"generic type uses extension", "application/octet-stream", "Report.PDF", &pdf.Extractor{}},
		{"missing type uses extension", "", "notes.docx", &docx.Extractor{}},
		{"unknown falls back", "application/x-unknown", "blob.bin", &plaintext.Extractor{}},
		{"markdown", "text/markdown", "readme.md", &plaintext.Extractor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Select(tt.mimeType, tt.filename)
			require.NotNil(t, got)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestSelect_PriorityWins(t *testing.T) {
	r := NewRegistry()
	low := &stubExtractor{mimeTypes: []string{"text/plain"}, priority: 50, output: "low"}
	high := &stubExtractor{mimeTypes: []string{"text/plain"}, priority: 80, output: "high"}
	r.Register(low)
	r.Register(high)

	text, err := r.Extract(context.Background(), &domain.RawDocument{MIMEType: "text/plain"})

	require.NoError(t, err)
	assert.Equal(t, "high", text)
}

func TestExtract_NoFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"application/pdf"}, priority: 50})

	_, err := r.Extract(context.Background(), &domain.RawDocument{MIMEType: "image/png", Filename: "a.png"})

	var unsupported *domain.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "image/png", unsupported.MIMEType)
}

func TestExtract_LegacyWordIsUnsupported(t *testing.T) {
	_, err := Default().Extract(context.Background(), &domain.RawDocument{
		MIMEType: "application/msword",
		Filename: "old.doc",
		Content:  []byte{0xd0, 0xcf},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtract_Nil(t *testing.T) {
	_, err := Default().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSupportedMIMETypes(t *testing.T) {
	types := Default().SupportedMIMETypes()

	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, docx.MIMEType)
	assert.Contains(t, types, "application/json")
	assert.Contains(t, types, "text/plain")
	assert.IsIncreasing(t, types)
}

func TestNormaliseMIMEType(t *testing.T) {
	assert.Equal(t, "text/plain", NormaliseMIMEType(" Text/Plain; charset=UTF-8 "))
	assert.Equal(t, "", NormaliseMIMEType(""))
}
