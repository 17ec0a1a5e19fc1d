package history

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"DocHarvester/internal/domain"
	"DocHarvester/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS download_attempts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL,
    project_id TEXT NOT NULL,
    doc_type   TEXT NOT NULL,
    saved_path TEXT,
    sha256     TEXT,
    status     TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_download_attempts_sha256 ON download_attempts (sha256);
CREATE INDEX IF NOT EXISTS idx_download_attempts_project ON download_attempts (project_id);
`

// SQLiteRepository persists download attempts into an embedded SQLite
// database for cross-run dedupe signals and audit.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.DownloadHistory = (*SQLiteRepository)(nil)

// Open opens (or creates) the history database and ensures the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SeenHash reports whether content with this hash was stored by any prior
// attempt that kept a file on disk.
func (r *SQLiteRepository) SeenHash(ctx context.Context, sha256 string) (bool, error) {
	if r == nil || r.db == nil || sha256 == "" {
		return false, nil
	}

	query, args, err := sq.Select("COUNT(1)").
		From("download_attempts").
		Where(sq.Eq{
			"sha256": sha256,
			"status": []string{string(domain.StatusDownloaded), string(domain.StatusSkippedExisting)},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query seen hash: %w", err)
	}
	return count > 0, nil
}

// RecordAttempt appends one history row per attempt.
func (r *SQLiteRepository) RecordAttempt(ctx context.Context, record domain.HistoryRecord) error {
	if r == nil || r.db == nil {
		return nil
	}

	query, args, err := sq.Insert("download_attempts").
		Columns("run_id", "project_id", "doc_type", "saved_path", "sha256", "status", "created_at").
		Values(record.RunID, record.ProjectID, string(record.DocType), record.SavedPath, record.SHA256, string(record.Status), record.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}
