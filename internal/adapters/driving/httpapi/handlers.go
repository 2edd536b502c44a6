package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

// handleBuild runs a build. Empty and fully failed builds are client
// errors and still report the build summary.
func (s *Server) handleBuild(c echo.Context) error {
	result, err := s.ports.Build.RunBuild(c.Request().Context(), userID(c))
	if err != nil {
		if result == nil || !domain.IsClientError(err) {
			return writeError(c, err)
		}
		resp := newBuildResponse(result)
		resp.Error = err.Error()
		return c.JSON(http.StatusBadRequest, resp)
	}
	return c.JSON(http.StatusOK, newBuildResponse(result))
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: msgInvalidBody})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: msgMissingQuery})
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
	}
	result, err := s.ports.Retrieval.Retrieve(c.Request().Context(), userID(c), req.Query, topK)
	if err != nil {
		return writeError(c, err)
	}
	if result.Chunks == nil {
		result.Chunks = []domain.RetrievedChunk{}
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleState(c echo.Context) error {
	state, err := s.ports.KnowledgeBase.State(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newStateResponse(state))
}

func (s *Server) handleReset(c echo.Context) error {
	if err := s.ports.KnowledgeBase.Reset(c.Request().Context(), userID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleUpload(c echo.Context) error {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Expected multipart/form-data"})
	}
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid multipart form"})
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "No files provided"})
	}

	resp := uploadResponse{Files: make([]fileSummary, 0, len(headers))}
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return writeError(c, err)
		}
		doc, err := s.ports.KnowledgeBase.Upload(c.Request().Context(), userID(c), driving.UploadRequest{
			Filename: fh.Filename,
			MIMEType: fh.Header.Get(echo.HeaderContentType),
			Content:  content,
		})
		if err != nil {
			return writeError(c, err)
		}
		resp.Files = append(resp.Files, newFileSummary(doc))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePreview(c echo.Context) error {
	preview, err := s.ports.KnowledgeBase.Preview(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !isDocumentMissing(err) {
			// The row exists but its bytes could not be read.
			return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to read file"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, previewResponse{
		File:    newFileDetail(&preview.Document),
		Preview: preview.Text,
		Message: preview.Message,
	})
}

func (s *Server) handleDelete(c echo.Context) error {
	if err := s.ports.KnowledgeBase.DeleteDocument(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	report, err := s.ports.Health.Check(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// isDocumentMissing reports whether a preview error is the bare not-found
// of the document lookup rather than a wrapped blob read failure.
func isDocumentMissing(err error) bool {
	return err == domain.ErrNotFound //nolint:errorlint // identity check is intended
}
