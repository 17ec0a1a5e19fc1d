package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DocHarvester/internal/domain"
	"DocHarvester/internal/fetch"
	"DocHarvester/internal/ports"
	"DocHarvester/pkg/slug"
)

const (
	defaultDate   = "0000-00-00"
	defaultRepNb  = "NO-REPNB"
	defaultLang   = "xx"
	minVersionIdx = 2
)

// Options tunes path derivation and the versioning policy.
type Options struct {
	OutDir string
	DryRun bool
	// VersionStart is the first suffix index tried when an existing file
	// has different content; defaults to 2 (-v2, -v3, ...).
	VersionStart  int
	SlugMaxLength int
}

// Manager decides per candidate whether to skip, version, or write, and
// produces exactly one manifest entry per attempt. Writes are atomic:
// content lands in a temp file first and is renamed into place.
type Manager struct {
	fetcher      *fetch.Client
	outDir       string
	dryRun       bool
	versionStart int
	slugMax      int
	logger       *slog.Logger
	now          func() time.Time
}

var _ ports.DocumentStore = (*Manager)(nil)

// NewManager wires the fetch client used to retrieve PDF content.
func NewManager(fetcher *fetch.Client, opts Options, logger *slog.Logger) *Manager {
	if opts.VersionStart < minVersionIdx {
		opts.VersionStart = minVersionIdx
	}
	if opts.SlugMaxLength <= 0 {
		opts.SlugMaxLength = slug.DefaultMaxLength
	}
	return &Manager{
		fetcher:      fetcher,
		outDir:       opts.OutDir,
		dryRun:       opts.DryRun,
		versionStart: opts.VersionStart,
		slugMax:      opts.SlugMaxLength,
		logger:       logger,
		now:          time.Now,
	}
}

// PathFor derives the deterministic destination path for a candidate:
// {out}/{country}/{id}_{slug(title)}/{DocType}/{date}_{repnb}_{slug(name)}_{lang}.pdf
// Identical inputs always produce the identical path; only the version
// suffix added on content conflicts varies.
func (m *Manager) PathFor(project domain.ProjectRecord, candidate domain.DocumentCandidate, docType domain.DocumentType) string {
	date := candidate.PublicationDate
	if date == "" {
		date = defaultDate
	}
	repnb := candidate.ReportNumber
	if repnb == "" {
		repnb = defaultRepNb
	}
	lang := candidate.Language
	if lang == "" {
		lang = defaultLang
	}

	projectDir := project.ID + "_" + slug.Make(project.Title, m.slugMax)
	filename := fmt.Sprintf("%s_%s_%s_%s.pdf", date, repnb, slug.Make(candidate.Title, m.slugMax), lang)
	return filepath.Join(m.outDir, project.Country, projectDir, string(docType), filename)
}

// Store downloads the candidate and applies the idempotence rule: identical
// existing content is skipped, conflicting content is written under the
// first unused -vN suffix, and the original file is never touched.
func (m *Manager) Store(ctx context.Context, project domain.ProjectRecord, candidate domain.DocumentCandidate, docType domain.DocumentType) domain.ManifestEntry {
	entry := domain.ManifestEntry{
		Country:      project.Country,
		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		DocType:      docType,
		DocDate:      candidate.PublicationDate,
		ReportNumber: candidate.ReportNumber,
		Language:     candidate.Language,
		SourceURL:    candidate.SourceURL,
		PDFURL:       candidate.PDFURL,
		AttemptedAt:  m.now(),
	}

	destination := m.PathFor(project, candidate, docType)

	if m.dryRun {
		entry.SavedPath = destination
		entry.Status = domain.StatusDryRun
		return entry
	}

	pdfURL := resolvePDFURL(candidate)
	if pdfURL == "" {
		m.warn("no pdf url for candidate", "project", project.ID, "title", candidate.Title)
		entry.Status = domain.StatusFailed
		return entry
	}
	entry.PDFURL = pdfURL

	content, err := m.fetcher.Get(ctx, pdfURL, nil)
	if err != nil {
		m.warn("download failed", "project", project.ID, "url", pdfURL, "error", err)
		entry.Status = domain.StatusFailed
		return entry
	}

	contentHash := hashBytes(content)
	entry.SHA256 = contentHash

	if existingHash, exists, err := hashFile(destination); err != nil {
		m.warn("hash existing file", "path", destination, "error", err)
		entry.Status = domain.StatusFailed
		return entry
	} else if exists {
		if existingHash == contentHash {
			entry.SavedPath = destination
			entry.Status = domain.StatusSkippedExisting
			return entry
		}
		destination = m.versionedPath(destination)
	}

	if err := writeAtomic(destination, content); err != nil {
		m.warn("write failed", "path", destination, "error", err)
		entry.Status = domain.StatusFailed
		return entry
	}

	entry.SavedPath = destination
	entry.Status = domain.StatusDownloaded
	return entry
}

// versionedPath appends the first unused -vN suffix, starting at the
// configured index.
func (m *Manager) versionedPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := m.versionStart; ; n++ {
		candidate := fmt.Sprintf("%s-v%d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func (m *Manager) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func resolvePDFURL(candidate domain.DocumentCandidate) string {
	if candidate.PDFURL != "" {
		return candidate.PDFURL
	}
	if strings.Contains(strings.ToLower(candidate.SourceURL), "pdf") {
		return candidate.SourceURL
	}
	return ""
}

func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (hash string, exists bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", true, fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}

// writeAtomic stages content in a temp file in the destination directory
// and renames it into place, so a crash never leaves a partial file at the
// destination path.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
