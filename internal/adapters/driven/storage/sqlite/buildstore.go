package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// buildStore implements driven.BuildStore.
type buildStore struct {
	store *Store
}

var _ driven.BuildStore = (*buildStore)(nil)

const buildColumns = `id, user_id, status, started_at, completed_at, processed, failed, error`

// CreateBuild inserts a new build row.
func (s *buildStore) CreateBuild(ctx context.Context, build *domain.Build) error {
	if build == nil || build.ID == "" || build.UserID == "" {
		return domain.ErrInvalidInput
	}
	if build.StartedAt.IsZero() {
		build.StartedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO builds (`+buildColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, build.ID, build.UserID, string(build.Status), build.StartedAt.UTC(),
		nullTime(build.CompletedAt), build.Processed, build.Failed, nullString(build.Error))
	if err != nil {
		return fmt.Errorf("creating build: %w", err)
	}
	return nil
}

// UpdateBuild stores status, counters, completion time and error summary.
func (s *buildStore) UpdateBuild(ctx context.Context, build *domain.Build) error {
	if build == nil {
		return domain.ErrInvalidInput
	}

	result, err := s.store.db.ExecContext(ctx, `
		UPDATE builds SET status = ?, completed_at = ?, processed = ?, failed = ?, error = ?
		WHERE id = ?
	`, string(build.Status), nullTime(build.CompletedAt), build.Processed, build.Failed,
		nullString(build.Error), build.ID)
	if err != nil {
		return fmt.Errorf("updating build: %w", err)
	}
	return requireRow(result)
}

// LatestBuild returns the user's most recent build by start time.
func (s *buildStore) LatestBuild(ctx context.Context, userID string) (*domain.Build, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		WHERE user_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`, userID)

	var b domain.Build
	var status string
	var startedAt, completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &status, &startedAt, &completedAt,
		&b.Processed, &b.Failed, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning build: %w", err)
	}

	b.Status = domain.BuildStatus(status)
	b.Error = errMsg.String
	if startedAt.Valid {
		b.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}

// CreateJob inserts a new job row.
func (s *buildStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, build_id, document_id, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.BuildID, job.DocumentID, string(job.Status), nullString(job.Error),
		job.CreatedAt.UTC(), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// FailJob marks a job failed with the given reason.
func (s *buildStore) FailJob(ctx context.Context, jobID, reason string) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(domain.JobStatusFailed), reason, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failing job: %w", err)
	}
	return requireRow(result)
}

// CompleteJob replaces the document's chunks and marks the job done in one
// transaction.
func (s *buildStore) CompleteJob(ctx context.Context, job *domain.Job, chunks []domain.Chunk) error {
	if job == nil {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, job.DocumentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, idx, text, external_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if c.DocumentID != job.DocumentID {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.DocumentID)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Text, nullString(c.ExternalID)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = NULL, updated_at = ? WHERE id = ?
	`, string(domain.JobStatusDone), now, job.ID)
	if err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	job.Status = domain.JobStatusDone
	job.Error = ""
	job.UpdatedAt = now
	return nil
}

// ListJobs returns the jobs of a build in creation order.
func (s *buildStore) ListJobs(ctx context.Context, buildID string) ([]domain.Job, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, build_id, document_id, status, error, created_at, updated_at
		FROM jobs WHERE build_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var j domain.Job
		var status string
		var errMsg sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.BuildID, &j.DocumentID, &status, &errMsg,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.Status = domain.JobStatus(status)
		j.Error = errMsg.String
		if createdAt.Valid {
			j.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			j.UpdatedAt = updatedAt.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SaveStatus upserts the user's knowledge base status.
func (s *buildStore) SaveStatus(ctx context.Context, status domain.KnowledgeBaseStatus) error {
	if status.UserID == "" || !status.Status.IsValid() {
		return domain.ErrInvalidInput
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kb_status (user_id, status, last_build_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			status = excluded.status,
			last_build_id = excluded.last_build_id,
			updated_at = excluded.updated_at
	`, status.UserID, string(status.Status), nullString(status.LastBuildID), status.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving status: %w", err)
	}
	return nil
}

// GetStatus returns the user's knowledge base status.
func (s *buildStore) GetStatus(ctx context.Context, userID string) (*domain.KnowledgeBaseStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, status, last_build_id, updated_at FROM kb_status WHERE user_id = ?
	`, userID)

	var st domain.KnowledgeBaseStatus
	var status string
	var lastBuildID sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&st.UserID, &status, &lastBuildID, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning status: %w", err)
	}
	st.Status = domain.KBStatus(status)
	st.LastBuildID = lastBuildID.String
	if updatedAt.Valid {
		st.UpdatedAt = updatedAt.Time
	}
	return &st, nil
}

// Purge deletes the user's status, chunks, jobs, builds and documents in
// one transaction.
func (s *buildStore) Purge(ctx context.Context, userID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	statements := []string{
		`DELETE FROM kb_status WHERE user_id = ?`,
		`DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE user_id = ?)`,
		`DELETE FROM jobs WHERE build_id IN (SELECT id FROM builds WHERE user_id = ?)`,
		`DELETE FROM builds WHERE user_id = ?`,
		`DELETE FROM documents WHERE user_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("purging user data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// requireRow maps an update that touched nothing to domain.ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
