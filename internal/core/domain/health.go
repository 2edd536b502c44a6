package domain

// HealthIssue is a storage problem detected for one document.
type HealthIssue string

// Health issues.
const (
	IssueLegacyPath      HealthIssue = "legacy_db_path"
	IssueUnsafePath      HealthIssue = "unsafe_db_path"
	IssueMissingInStore  HealthIssue = "missing_in_storage"
	IssueNonCanonicalKey HealthIssue = "non_canonical_key"
)

// MaxHealthAttempts is the number of key attempts reported per document.
const MaxHealthAttempts = 12

// KeyAttempt records one existence check against blob storage.
type KeyAttempt struct {
	Key    string `json:"key"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// DocumentHealth describes whether one document's bytes can be located.
type DocumentHealth struct {
	DocumentID   string        `json:"id"`
	Filename     string        `json:"filename"`
	StorageKey   string        `json:"path"`
	MIMEType     string        `json:"mime"`
	LegacyPath   bool          `json:"legacyPath"`
	CanonicalKey string        `json:"canonicalKey"`
	FoundKey     string        `json:"found,omitempty"`
	Attempts     []KeyAttempt  `json:"attempts"`
	Issues       []HealthIssue `json:"issues"`
}

// HasIssue returns true if the document reported the given issue.
func (d DocumentHealth) HasIssue(issue HealthIssue) bool {
	for _, i := range d.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// HealthSummary aggregates issues across documents.
type HealthSummary struct {
	Total        int `json:"total"`
	OK           int `json:"ok"`
	Missing      int `json:"missing"`
	Legacy       int `json:"legacy"`
	NonCanonical int `json:"nonCanonical"`
	Orphaned     int `json:"orphaned"`
}

// BackendHealth is the reachability of the embedding backend.
type BackendHealth struct {
	Model     string `json:"model"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// HealthReport is the result of a storage health check.
type HealthReport struct {
	// Status is "ok" when nothing is missing or legacy, otherwise "issues".
	// Orphaned blobs and an unreachable embedding backend do not change it.
	Status    string           `json:"status"`
	Summary   HealthSummary    `json:"summary"`
	Documents []DocumentHealth `json:"files"`

	// Orphans are keys under the user's canonical prefix that no document
	// resolves to.
	Orphans []string `json:"orphans"`

	// Embedding is set when an embedding backend is configured.
	Embedding *BackendHealth `json:"embedding,omitempty"`
}

// Health report statuses.
const (
	HealthStatusOK     = "ok"
	HealthStatusIssues = "issues"
)

// NewHealthReport summarises per-document health.
func NewHealthReport(docs []DocumentHealth) HealthReport {
	report := HealthReport{Documents: docs, Orphans: []string{}}
	report.Summary.Total = len(docs)
	for i := range docs {
		if len(docs[i].Issues) == 0 {
			report.Summary.OK++
		}
		if docs[i].HasIssue(IssueMissingInStore) {
			report.Summary.Missing++
		}
		if docs[i].HasIssue(IssueLegacyPath) {
			report.Summary.Legacy++
		}
		if docs[i].HasIssue(IssueNonCanonicalKey) {
			report.Summary.NonCanonical++
		}
	}
	report.Status = HealthStatusOK
	if report.Summary.Missing > 0 || report.Summary.Legacy > 0 {
		report.Status = HealthStatusIssues
	}
	return report
}
