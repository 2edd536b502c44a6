package httpapi

import (
	"context"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

type mockBuildOrchestrator struct {
	result   *domain.BuildResult
	err      error
	lastUser string
}

func (m *mockBuildOrchestrator) RunBuild(_ context.Context, userID string) (*domain.BuildResult, error) {
	m.lastUser = userID
	return m.result, m.err
}

type mockRetrievalService struct {
	result    *domain.RetrievalResult
	err       error
	calls     int
	lastUser  string
	lastQuery string
	lastTopK  int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, userID, query string, topK int) (*domain.RetrievalResult, error) {
	m.calls++
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

type mockKnowledgeBaseService struct {
	state     *domain.KnowledgeBaseState
	preview   *driving.Preview
	err       error
	uploads   []driving.UploadRequest
	deleted   []string
	resetUser string
}

func (m *mockKnowledgeBaseService) Upload(_ context.Context, userID string, req driving.UploadRequest) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.uploads = append(m.uploads, req)
	return &domain.Document{
		ID:       "doc-" + req.Filename,
		UserID:   userID,
		Filename: req.Filename,
		MIMEType: req.MIMEType,
		Size:     int64(len(req.Content)),
	}, nil
}

func (m *mockKnowledgeBaseService) State(_ context.Context, _ string) (*domain.KnowledgeBaseState, error) {
	return m.state, m.err
}

func (m *mockKnowledgeBaseService) Preview(_ context.Context, _, _ string) (*driving.Preview, error) {
	return m.preview, m.err
}

func (m *mockKnowledgeBaseService) DeleteDocument(_ context.Context, _, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockKnowledgeBaseService) Reset(_ context.Context, userID string) error {
	m.resetUser = userID
	return m.err
}

type mockHealthService struct {
	report *domain.HealthReport
	err    error
}

func (m *mockHealthService) Check(_ context.Context, _ string) (*domain.HealthReport, error) {
	return m.report, m.err
}
