package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// retrieveRequest is the body of POST /retrieve. TopK is optional.
type retrieveRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"topK"`
}

type buildResponse struct {
	Status    string   `json:"status"`
	BuildID   string   `json:"buildId,omitempty"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	Error     string   `json:"error,omitempty"`
}

type buildView struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Error       *string    `json:"error"`
}

// fileSummary is the list form of a document.
type fileSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       string    `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type stateResponse struct {
	KBStatus             string        `json:"kbStatus"`
	KBUpdatedAt          *time.Time    `json:"kbUpdatedAt"`
	LastBuild            *buildView    `json:"lastBuild"`
	LastBuildSuccessRate *int          `json:"lastBuildSuccessRate"`
	Files                []fileSummary `json:"files"`
}

// fileDetail is the single-file form of a document.
type fileDetail struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MIMEType  string    `json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type previewResponse struct {
	File    fileDetail `json:"file"`
	Preview *string    `json:"preview"`
	Message string     `json:"message,omitempty"`
}

type uploadResponse struct {
	Files []fileSummary `json:"files"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func newBuildResponse(r *domain.BuildResult) buildResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return buildResponse{
		Status:    string(r.Status),
		BuildID:   r.BuildID,
		Processed: r.Processed,
		Failed:    r.Failed,
		Errors:    errs,
	}
}

func newStateResponse(s *domain.KnowledgeBaseState) stateResponse {
	resp := stateResponse{
		KBStatus:             string(s.Status),
		KBUpdatedAt:          s.UpdatedAt,
		LastBuildSuccessRate: s.SuccessRate,
		Files:                make([]fileSummary, len(s.Documents)),
	}
	if b := s.LastBuild; b != nil {
		view := &buildView{
			ID:          b.ID,
			Status:      string(b.Status),
			StartedAt:   b.StartedAt,
			CompletedAt: b.CompletedAt,
			Processed:   b.Processed,
			Failed:      b.Failed,
		}
		if b.Error != "" {
			msg := b.Error
			view.Error = &msg
		}
		resp.LastBuild = view
	}
	for i := range s.Documents {
		resp.Files[i] = newFileSummary(&s.Documents[i])
	}
	return resp
}

func newFileSummary(d *domain.Document) fileSummary {
	return fileSummary{
		ID:         d.ID,
		Name:       d.Filename,
		Size:       FormatSize(d.Size),
		Type:       ShortType(d.MIMEType),
		UploadedAt: d.CreatedAt,
	}
}

func newFileDetail(d *domain.Document) fileDetail {
	return fileDetail{
		ID:        d.ID,
		Filename:  d.Filename,
		MIMEType:  d.MIMEType,
		Size:      d.Size,
		CreatedAt: d.CreatedAt,
	}
}

// FormatSize renders a byte count in kilobytes with two decimals.
func FormatSize(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}

// ShortType returns the subtype of a MIME type, or "unknown".
func ShortType(mimeType string) string {
	if i := strings.LastIndexByte(mimeType, '/'); i >= 0 {
		mimeType = mimeType[i+1:]
	}
	if mimeType == "" {
		return "unknown"
	}
	return mimeType
}
