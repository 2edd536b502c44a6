package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure BuildStore implements the interface.
var _ driven.BuildStore = (*BuildStore)(nil)

// BuildStore is an in-memory implementation of driven.BuildStore.
type BuildStore struct {
	store *Store
}

// CreateBuild inserts a new build.
func (s *BuildStore) CreateBuild(_ context.Context, build *domain.Build) error {
	if build == nil || build.ID == "" || build.UserID == "" {
		return domain.ErrInvalidInput
	}
	if build.StartedAt.IsZero() {
		build.StartedAt = time.Now().UTC()
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.builds[build.ID]; ok {
		return fmt.Errorf("build %s already exists", build.ID)
	}
	s.store.builds[build.ID] = buildRow{build: *build, seq: s.store.next()}
	return nil
}

// UpdateBuild stores status, counters, completion time and error summary.
func (s *BuildStore) UpdateBuild(_ context.Context, build *domain.Build) error {
	if build == nil {
		return domain.ErrInvalidInput
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	row, ok := s.store.builds[build.ID]
	if !ok {
		return domain.ErrNotFound
	}
	row.build.Status = build.Status
	row.build.CompletedAt = build.CompletedAt
	row.build.Processed = build.Processed
	row.build.Failed = build.Failed
	row.build.Error = build.Error
	s.store.builds[build.ID] = row
	return nil
}

// LatestBuild returns the user's most recent build by start time.
func (s *BuildStore) LatestBuild(_ context.Context, userID string) (*domain.Build, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var latest *buildRow
	for _, row := range s.store.builds {
		if row.build.UserID != userID {
			continue
		}
		if latest == nil ||
			row.build.StartedAt.After(latest.build.StartedAt) ||
			(row.build.StartedAt.Equal(latest.build.StartedAt) && row.seq > latest.seq) {
			r := row
			latest = &r
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	build := latest.build
	return &build, nil
}

// CreateJob inserts a new job.
func (s *BuildStore) CreateJob(_ context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.builds[job.BuildID]; !ok {
		return fmt.Errorf("creating job: build %s: %w", job.BuildID, domain.ErrNotFound)
	}
	if _, ok := s.store.documents[job.DocumentID]; !ok {
		return fmt.Errorf("creating job: document %s: %w", job.DocumentID, domain.ErrNotFound)
	}
	s.store.jobs[job.ID] = jobRow{job: *job, seq: s.store.next()}
	return nil
}

// FailJob marks a job failed with the given reason.
func (s *BuildStore) FailJob(_ context.Context, jobID, reason string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	row, ok := s.store.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	row.job.Status = domain.JobStatusFailed
	row.job.Error = reason
	row.job.UpdatedAt = time.Now().UTC()
	s.store.jobs[jobID] = row
	return nil
}

// CompleteJob replaces the document's chunks and marks the job done.
// Validation happens before any write, so a rejected call changes nothing.
func (s *BuildStore) CompleteJob(_ context.Context, job *domain.Job, chunks []domain.Chunk) error {
	if job == nil {
		return domain.ErrInvalidInput
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	row, ok := s.store.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.store.documents[job.DocumentID]; !ok {
		return fmt.Errorf("completing job: document %s: %w", job.DocumentID, domain.ErrNotFound)
	}
	seen := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		if c.DocumentID != job.DocumentID {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.DocumentID)
		}
		if _, dup := seen[c.Index]; dup {
			return fmt.Errorf("%w: duplicate chunk index %d", domain.ErrInvalidInput, c.Index)
		}
		seen[c.Index] = struct{}{}
	}

	replaced := append([]domain.Chunk(nil), chunks...)
	sort.Slice(replaced, func(i, j int) bool { return replaced[i].Index < replaced[j].Index })
	s.store.chunks[job.DocumentID] = replaced

	now := time.Now().UTC()
	row.job.Status = domain.JobStatusDone
	row.job.Error = ""
	row.job.UpdatedAt = now
	s.store.jobs[job.ID] = row

	job.Status = domain.JobStatusDone
	job.Error = ""
	job.UpdatedAt = now
	return nil
}

// ListJobs returns the jobs of a build in creation order.
func (s *BuildStore) ListJobs(_ context.Context, buildID string) ([]domain.Job, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var rows []jobRow
	for _, row := range s.store.jobs {
		if row.job.BuildID == buildID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	var jobs []domain.Job
	for _, row := range rows {
		jobs = append(jobs, row.job)
	}
	return jobs, nil
}

// SaveStatus upserts the user's knowledge base status.
func (s *BuildStore) SaveStatus(_ context.Context, status domain.KnowledgeBaseStatus) error {
	if status.UserID == "" || !status.Status.IsValid() {
		return domain.ErrInvalidInput
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.status[status.UserID] = status
	return nil
}

// GetStatus returns the user's knowledge base status.
func (s *BuildStore) GetStatus(_ context.Context, userID string) (*domain.KnowledgeBaseStatus, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	status, ok := s.store.status[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// Purge deletes the user's status, chunks, jobs, builds and documents.
func (s *BuildStore) Purge(_ context.Context, userID string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	delete(s.store.status, userID)
	for id, row := range s.store.documents {
		if row.doc.UserID == userID {
			s.store.deleteDocument(id)
		}
	}
	for id, row := range s.store.builds {
		if row.build.UserID != userID {
			continue
		}
		delete(s.store.builds, id)
		for jobID, j := range s.store.jobs {
			if j.job.BuildID == id {
				delete(s.store.jobs, jobID)
			}
		}
	}
	return nil
}
