package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query  string `json:"query" jsonschema:"the question or keywords to look up"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of chunks to return, 1 to 20 (default 6)"`
	UserID string `json:"user_id,omitempty" jsonschema:"knowledge base owner, defaults to the server user; over HTTP only the server user is accepted"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Mode   string                  `json:"mode"`
	Chunks []domain.RetrievedChunk `json:"chunks"`
	Count  int                     `json:"count"`
}

// BuildInput is the input schema for the build_knowledge_base tool.
type BuildInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"knowledge base owner, defaults to the server user; over HTTP only the server user is accepted"`
}

// BuildOutput is the output schema for the build_knowledge_base tool.
type BuildOutput struct {
	Status    string   `json:"status"`
	BuildID   string   `json:"build_id,omitempty"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// errBuildUnavailable is returned when the server was started without a
// build orchestrator.
var errBuildUnavailable = errors.New("build is not available on this server")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the knowledge base chunks most relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_knowledge_base",
		Description: "Extract, chunk and index every uploaded document",
	}, s.handleBuild)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	userID, err := s.user(input.UserID)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	result, err := s.ports.Retrieval.Retrieve(ctx, userID, input.Query, topK)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	chunks := result.Chunks
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	return nil, RetrieveOutput{
		Mode:   string(result.Mode),
		Chunks: chunks,
		Count:  len(chunks),
	}, nil
}

// handleBuild handles the build_knowledge_base tool invocation. Client
// errors such as an empty knowledge base are reported in the output, not
// as tool failures.
func (s *Server) handleBuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildInput,
) (*mcp.CallToolResult, BuildOutput, error) {
	if s.ports.Build == nil {
		return nil, BuildOutput{}, errBuildUnavailable
	}
	userID, err := s.user(input.UserID)
	if err != nil {
		return nil, BuildOutput{}, err
	}

	result, err := s.ports.Build.RunBuild(ctx, userID)
	if err != nil && (result == nil || !domain.IsClientError(err)) {
		return nil, BuildOutput{}, err
	}

	output := BuildOutput{
		Status:    string(result.Status),
		BuildID:   result.BuildID,
		Processed: result.Processed,
		Failed:    result.Failed,
		Errors:    result.Errors,
	}
	if err != nil {
		output.Message = err.Error()
	}
	return nil, output, nil
}
