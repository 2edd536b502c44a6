package mcp

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error

	lastUser  string
	lastQuery string
	lastTopK  int
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	userID, query string,
	topK int,
) (*domain.RetrievalResult, error) {
	m.lastUser = userID
	m.lastQuery = query
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Mode: domain.RetrievalModeLexical}, nil
	}
	return m.result, nil
}

// mockBuildOrchestrator is a mock implementation of driving.BuildOrchestrator.
type mockBuildOrchestrator struct {
	result   *domain.BuildResult
	err      error
	lastUser string
}

func (m *mockBuildOrchestrator) RunBuild(_ context.Context, userID string) (*domain.BuildResult, error) {
	m.lastUser = userID
	return m.result, m.err
}

// mockKnowledgeBaseService is a mock implementation of driving.KnowledgeBaseService.
type mockKnowledgeBaseService struct {
	state    *domain.KnowledgeBaseState
	preview  *driving.Preview
	err      error
	lastUser string
	lastDoc  string
}

func (m *mockKnowledgeBaseService) Upload(
	_ context.Context,
	_ string,
	_ driving.UploadRequest,
) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockKnowledgeBaseService) State(_ context.Context, userID string) (*domain.KnowledgeBaseState, error) {
	m.lastUser = userID
	return m.state, m.err
}

func (m *mockKnowledgeBaseService) Preview(_ context.Context, userID, documentID string) (*driving.Preview, error) {
	m.lastUser = userID
	m.lastDoc = documentID
	return m.preview, m.err
}

func (m *mockKnowledgeBaseService) DeleteDocument(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockKnowledgeBaseService) Reset(_ context.Context, _ string) error {
	return m.err
}
