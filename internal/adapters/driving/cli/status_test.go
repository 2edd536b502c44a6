package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

func TestStatusCmd_PrintsState(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Status: ready")
	assert.Contains(t, out, "[Last build]")
	assert.Contains(t, out, "ID:        build-1")
	assert.Contains(t, out, "Success:   50%")
	assert.Contains(t, out, "Files: 1")
}

func TestStatusCmd_EmptyKnowledgeBase(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.kb.state = &domain.KnowledgeBaseState{Status: domain.KBStatusEmpty}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Status: empty")
	assert.NotContains(t, buf.String(), "[Last build]")
	assert.Contains(t, buf.String(), "Files: 0")
}

func TestStatusCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"Status": "ready"`)
	assert.Contains(t, buf.String(), `"Filename": "refunds.md"`)
}

func TestResetCmd_Force(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"reset", "--force", "--user", "carol"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "carol", svc.kb.resetUser)
	assert.Contains(t, buf.String(), "Knowledge base reset.")
}

func TestResetCmd_ConfirmYes(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("y\n"))
	rootCmd.SetArgs([]string{"reset"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, DefaultUserID, svc.kb.resetUser)
}

func TestResetCmd_ConfirmNo(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("n\n"))
	rootCmd.SetArgs([]string{"reset"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Empty(t, svc.kb.resetUser)
	assert.Contains(t, buf.String(), "Cancelled.")
}

func TestHealthcheckCmd_PrintsIssues(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"healthcheck"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Status: issues")
	assert.Contains(t, out, "Missing: 1")
	assert.Contains(t, out, "refunds.md (doc-1)")
	assert.Contains(t, out, "missing_in_storage")
	assert.NotContains(t, out, "Embedding:")
	assert.NotContains(t, out, "Orphaned blobs")
}

func TestHealthcheckCmd_PrintsBackendAndOrphans(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.health.report.Orphans = []string{"knowledge-base/local/old.pdf"}
	svc.health.report.Summary.Orphaned = 1
	svc.health.report.Embedding = &domain.BackendHealth{
		Model: "nomic-embed-text",
		Error: "embedding service unavailable: connection refused",
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"healthcheck"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Orphaned: 1")
	assert.Contains(t, out, "Orphaned blobs:")
	assert.Contains(t, out, "knowledge-base/local/old.pdf")
	assert.Contains(t, out, "Embedding: nomic-embed-text unreachable (embedding service unavailable: connection refused)")
}

func TestHealthcheckCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"healthcheck", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"status": "issues"`)
	assert.Contains(t, buf.String(), `"files": [`)
}

func TestHealthcheckCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(Services{})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"healthcheck"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "health service not configured")
}
