package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"DocHarvester/internal/domain"
)

var manifestHeader = []string{
	"country", "project_id", "project_title", "doc_type", "doc_date",
	"repnb", "language", "source_url", "pdf_url", "saved_path", "status", "sha256",
}

// AppendManifest appends one row per attempt to the manifest CSV, creating
// the file (and its header) on first use. The manifest is an append-only
// log across runs.
func AppendManifest(path string, entries []domain.ManifestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(manifestHeader); err != nil {
			return fmt.Errorf("write manifest header: %w", err)
		}
	}
	for _, entry := range entries {
		row := []string{
			entry.Country,
			entry.ProjectID,
			entry.ProjectTitle,
			string(entry.DocType),
			entry.DocDate,
			entry.ReportNumber,
			entry.Language,
			entry.SourceURL,
			entry.PDFURL,
			entry.SavedPath,
			string(entry.Status),
			entry.SHA256,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write manifest row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return nil
}

// SummaryHeader builds the summary column list for the given ordered type
// set: the three project columns followed by has/count/paths triples.
func SummaryHeader(types []domain.DocumentType) []string {
	header := []string{"country", "project_id", "project_title"}
	for _, t := range types {
		tag := t.Tag()
		header = append(header, "has_"+tag, tag+"_count", tag+"_paths")
	}
	return header
}

// WriteSummary rewrites the summary CSV in full; it is recomputed each run
// rather than incrementally updated.
func WriteSummary(path string, summaries []domain.SummaryEntry, types []domain.DocumentType) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(SummaryHeader(types)); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, summary := range summaries {
		row := []string{summary.Country, summary.ProjectID, summary.ProjectTitle}
		for _, t := range types {
			ts := summary.ByType[t]
			if ts == nil {
				ts = &domain.TypeSummary{}
			}
			row = append(row,
				strconv.FormatBool(ts.Present),
				strconv.Itoa(ts.Count),
				strings.Join(ts.Paths, ";"),
			)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}
