package ports

import (
	"context"

	"DocHarvester/internal/domain"
)

// DocumentSource discovers candidate documents for a project from an
// upstream institution.
type DocumentSource interface {
	Discover(ctx context.Context, project domain.ProjectRecord) ([]domain.DocumentCandidate, error)
}

// DownloadHistory persists download attempts for dedupe and audit across
// runs. Implementations must tolerate being consulted before any row
// exists.
type DownloadHistory interface {
	SeenHash(ctx context.Context, sha256 string) (bool, error)
	RecordAttempt(ctx context.Context, record domain.HistoryRecord) error
}

// DocumentStore turns a resolved candidate into a manifest row, applying
// the skip/version/write decision.
type DocumentStore interface {
	Store(ctx context.Context, project domain.ProjectRecord, candidate domain.DocumentCandidate, docType domain.DocumentType) domain.ManifestEntry
}
