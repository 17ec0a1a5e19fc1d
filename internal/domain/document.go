package domain

import "time"

// ProjectRecord is one row of the input table. Immutable once read; the
// source of truth stays in the external CSV.
type ProjectRecord struct {
	ID      string
	Country string
	Title   string
	Extra   map[string]string
}

// DocumentCandidate is a document discovered for a project. Transient; it is
// only persisted through a ManifestEntry.
type DocumentCandidate struct {
	Title           string
	Language        string
	PublicationDate string
	ReportNumber    string
	SourceURL       string
	PDFURL          string
}

// DocumentType is the closed set of tags the classifier can assign.
type DocumentType string

const (
	TypePAD             DocumentType = "PAD"
	TypePID             DocumentType = "PID"
	TypeLoanProposal    DocumentType = "LoanProposal"
	TypeProjectProposal DocumentType = "ProjectProposal"
	TypeProjectAbstract DocumentType = "ProjectAbstract"
	TypeUnknown         DocumentType = "Unknown"
)

// Tag returns the lower-snake form used in summary column names.
func (t DocumentType) Tag() string {
	switch t {
	case TypePAD:
		return "pad"
	case TypePID:
		return "pid"
	case TypeLoanProposal:
		return "loan_proposal"
	case TypeProjectProposal:
		return "project_proposal"
	case TypeProjectAbstract:
		return "project_abstract"
	default:
		return "unknown"
	}
}

// AttemptStatus enumerates download attempt outcomes recorded in the manifest.
type AttemptStatus string

const (
	StatusDownloaded      AttemptStatus = "downloaded"
	StatusSkippedExisting AttemptStatus = "skipped_existing"
	StatusFailed          AttemptStatus = "failed"
	StatusDryRun          AttemptStatus = "dry_run"
)

// ManifestEntry is one append-only row per fetch attempt; never mutated
// after it is produced.
type ManifestEntry struct {
	Country      string
	ProjectID    string
	ProjectTitle string
	DocType      DocumentType
	DocDate      string
	ReportNumber string
	Language     string
	SourceURL    string
	PDFURL       string
	SavedPath    string
	Status       AttemptStatus
	SHA256       string
	AttemptedAt  time.Time
}

// TypeSummary folds manifest rows of one type for one project.
type TypeSummary struct {
	Present bool
	Count   int
	Paths   []string
}

// SummaryEntry is one row per project, recomputed in full on each run.
type SummaryEntry struct {
	Country      string
	ProjectID    string
	ProjectTitle string
	ByType       map[DocumentType]*TypeSummary
}

// RunStats aggregates the batch outcome printed at the end of a run.
type RunStats struct {
	TotalProjects  int
	Downloaded     int
	Skipped        int
	Failed         int
	DryRun         int
	ProjectsByType map[DocumentType]int
}

// HistoryRecord is a download-history row persisted for dedupe and audit.
type HistoryRecord struct {
	RunID     string
	ProjectID string
	DocType   DocumentType
	SavedPath string
	SHA256    string
	Status    AttemptStatus
	CreatedAt time.Time
}
