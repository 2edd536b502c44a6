package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for knowledge base resources.
	uriScheme = "kb://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{userId}/state",
		Name:        "knowledge-base-state",
		Description: "Build status, last build and files of a user's knowledge base",
		MIMEType:    "application/json",
	}, s.handleStateResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{userId}/files/{fileId}",
		Name:        "file-preview",
		Description: "Leading text of an uploaded file",
		MIMEType:    "text/plain",
	}, s.handleFileResource)
}

type fileInfo struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MIMEType  string    `json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type buildInfo struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
}

type stateInfo struct {
	Status      string     `json:"status"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	LastBuild   *buildInfo `json:"lastBuild,omitempty"`
	SuccessRate *int       `json:"successRate,omitempty"`
	Files       []fileInfo `json:"files"`
}

// handleStateResource returns the knowledge base state for a user.
func (s *Server) handleStateResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.KnowledgeBase == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract userId from URI: kb://{userId}/state
	userID := extractStateUser(req.Params.URI)
	if userID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	userID, err := s.user(userID)
	if err != nil {
		return nil, err
	}

	state, err := s.ports.KnowledgeBase.State(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting state: %w", err)
	}

	data, err := json.MarshalIndent(newStateInfo(state), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling state: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleFileResource returns the preview text of a file.
func (s *Server) handleFileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.KnowledgeBase == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract ids from URI: kb://{userId}/files/{fileId}
	userID, fileID := extractFileIDs(req.Params.URI)
	if userID == "" || fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	userID, err := s.user(userID)
	if err != nil {
		return nil, err
	}

	preview, err := s.ports.KnowledgeBase.Preview(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("getting file preview: %w", err)
	}

	text := preview.Message
	if preview.Text != nil {
		text = *preview.Text
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

func newStateInfo(state *domain.KnowledgeBaseState) stateInfo {
	info := stateInfo{
		Status:      string(state.Status),
		UpdatedAt:   state.UpdatedAt,
		SuccessRate: state.SuccessRate,
		Files:       make([]fileInfo, len(state.Documents)),
	}
	if b := state.LastBuild; b != nil {
		info.LastBuild = &buildInfo{
			ID:          b.ID,
			Status:      string(b.Status),
			StartedAt:   b.StartedAt,
			CompletedAt: b.CompletedAt,
			Processed:   b.Processed,
			Failed:      b.Failed,
			Error:       b.Error,
		}
	}
	for i := range state.Documents {
		d := &state.Documents[i]
		info.Files[i] = fileInfo{
			ID:        d.ID,
			Filename:  d.Filename,
			MIMEType:  d.MIMEType,
			Size:      d.Size,
			CreatedAt: d.CreatedAt,
		}
	}
	return info
}

// extractStateUser extracts the user ID from a URI like kb://{userId}/state.
func extractStateUser(uri string) string {
	const suffix = "/state"

	if !strings.HasPrefix(uri, uriScheme) || !strings.HasSuffix(uri, suffix) {
		return ""
	}

	userID := strings.TrimSuffix(strings.TrimPrefix(uri, uriScheme), suffix)
	if strings.Contains(userID, "/") {
		return ""
	}
	return userID
}

// extractFileIDs extracts the user and file IDs from a URI like
// kb://{userId}/files/{fileId}.
func extractFileIDs(uri string) (userID, fileID string) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", ""
	}

	parts := strings.Split(strings.TrimPrefix(uri, uriScheme), "/")
	if len(parts) != 3 || parts[1] != "files" {
		return "", ""
	}
	return parts[0], parts[2]
}
