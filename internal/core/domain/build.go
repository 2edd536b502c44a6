package domain

import "time"

// BuildStatus is the lifecycle state of one Build.
type BuildStatus string

// Build statuses.
const (
	BuildStatusBuilding BuildStatus = "building"
	BuildStatusReady    BuildStatus = "ready"
	BuildStatusFailed   BuildStatus = "failed"
)

// JobStatus is the lifecycle state of one per-document Job.
type JobStatus string

// Job statuses.
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// KBStatus is the coarse knowledge base state cached per user.
type KBStatus string

// Knowledge base statuses.
const (
	KBStatusEmpty    KBStatus = "empty"
	KBStatusBuilding KBStatus = "building"
	KBStatusReady    KBStatus = "ready"
)

// IsValid returns true if the status is recognised.
func (s KBStatus) IsValid() bool {
	switch s {
	case KBStatusEmpty, KBStatusBuilding, KBStatusReady:
		return true
	default:
		return false
	}
}

// Build is one invocation of the build pipeline for a user.
// Processed + Failed always equals the number of documents attempted.
type Build struct {
	ID          string
	UserID      string
	Status      BuildStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Processed   int
	Failed      int
	Error       string
}

// Attempted returns the number of documents the build has attempted.
func (b Build) Attempted() int {
	return b.Processed + b.Failed
}

// SuccessRate returns the percentage of attempted documents that were
// processed, rounded to the nearest integer. ok is false when nothing
// was attempted.
func (b Build) SuccessRate() (rate int, ok bool) {
	total := b.Attempted()
	if total == 0 {
		return 0, false
	}
	return (b.Processed*200 + total) / (2 * total), true
}

// Job is the per-document unit of work within a Build.
// Jobs are never reused across builds.
type Job struct {
	ID         string
	BuildID    string
	DocumentID string
	Status     JobStatus
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KnowledgeBaseStatus is the per-user cache of the latest build state.
type KnowledgeBaseStatus struct {
	UserID      string
	Status      KBStatus
	LastBuildID string
	UpdatedAt   time.Time
}

// BuildResult is returned by a build run.
type BuildResult struct {
	// Status is the knowledge base status after the run.
	Status KBStatus

	// BuildID is empty when no Build row was created.
	BuildID string

	Processed int
	Failed    int

	// Errors holds up to the first few per-document failure reasons.
	Errors []string
}

// KnowledgeBaseState is the read model served to status consumers.
type KnowledgeBaseState struct {
	Status      KBStatus
	UpdatedAt   *time.Time
	LastBuild   *Build
	SuccessRate *int
	Documents   []Document
}
