package cli

import (
	"context"
	"time"

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
	lastUser  string
	lastQuery string
	lastTopK  int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, userID, query string, topK int) (*domain.RetrievalResult, error) {
	m.lastUser = userID
	m.lastQuery = query
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
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
	if m.err != nil {
		return m.err
	}
	m.resetUser = userID
	return nil
}

type mockHealthService struct {
	report *domain.HealthReport
	err    error
}

func (m *mockHealthService) Check(_ context.Context, _ string) (*domain.HealthReport, error) {
	return m.report, m.err
}

type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
	values   map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"vector.url", "server.addr"}
}

type testServices struct {
	build     *mockBuildOrchestrator
	retrieval *mockRetrievalService
	kb        *mockKnowledgeBaseService
	health    *mockHealthService
	settings  *mockSettingsService
}

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestServices returns mocks preloaded with one document, one build
// and one retrieval hit.
func newTestServices() *testServices {
	completed := testTime.Add(time.Minute)
	rate := 50
	settings := domain.DefaultAppSettings()

	return &testServices{
		build: &mockBuildOrchestrator{result: &domain.BuildResult{
			Status:    domain.KBStatusReady,
			BuildID:   "build-1",
			Processed: 1,
			Failed:    1,
			Errors:    []string{"broken.pdf: corrupt document"},
		}},
		retrieval: &mockRetrievalService{result: &domain.RetrievalResult{
			Mode: domain.RetrievalModeLexical,
			Chunks: []domain.RetrievedChunk{
				{ChunkID: "doc-1-0", DocumentID: "doc-1", Score: 1.5, Text: "Refunds are issued within 14 days."},
			},
		}},
		kb: &mockKnowledgeBaseService{state: &domain.KnowledgeBaseState{
			Status:    domain.KBStatusReady,
			UpdatedAt: &completed,
			LastBuild: &domain.Build{
				ID:          "build-1",
				Status:      domain.BuildStatusReady,
				StartedAt:   testTime,
				CompletedAt: &completed,
				Processed:   1,
				Failed:      1,
			},
			SuccessRate: &rate,
			Documents: []domain.Document{
				{ID: "doc-1", Filename: "refunds.md", MIMEType: "text/markdown", Size: 34, CreatedAt: testTime},
			},
		}},
		health: &mockHealthService{report: &domain.HealthReport{
			Status:  domain.HealthStatusIssues,
			Summary: domain.HealthSummary{Total: 1, Missing: 1},
			Documents: []domain.DocumentHealth{
				{
					DocumentID: "doc-1",
					Filename:   "refunds.md",
					StorageKey: "knowledge-base/local/refunds.md",
					Issues:     []domain.HealthIssue{domain.IssueMissingInStore},
				},
			},
		}},
		settings: &mockSettingsService{settings: &settings, values: map[string]string{}},
	}
}

// setupTestServices injects fresh mocks and returns them with a cleanup
// func that clears the services and resets flag state.
func setupTestServices() (*testServices, func()) {
	s := newTestServices()
	SetServices(Services{
		Build:         s.build,
		Retrieval:     s.retrieval,
		KnowledgeBase: s.kb,
		Health:        s.health,
		Settings:      s.settings,
	})

	return s, func() {
		SetServices(Services{})
		userFlag = ""
		retrieveTopK = domain.DefaultTopK
		retrieveJSON = false
		buildJSON = false
		statusJSON = false
		healthcheckJSON = false
		resetForce = false
		uploadMIMEType = ""
		rootCmd.SetIn(nil)
	}
}
