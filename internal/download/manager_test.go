package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocHarvester/internal/domain"
	"DocHarvester/internal/fetch"
)

var (
	testProject = domain.ProjectRecord{
		ID:      "P149286",
		Country: "India",
		Title:   "Second Karnataka State Highway Improvement Project",
	}
	testCandidate = domain.DocumentCandidate{
		Title:           "Project Appraisal Document",
		Language:        "en",
		PublicationDate: "2019-05-01",
		ReportNumber:    "PAD2894",
		SourceURL:       "https://documents.example.org/curated/123",
		PDFURL:          "", // filled per test from the test server
	}
)

func newManager(t *testing.T, serverURL, outDir string, opts Options) (*Manager, domain.DocumentCandidate) {
	t.Helper()
	opts.OutDir = outDir
	fetcher := fetch.NewClient(fetch.Options{MaxAttempts: 1}, nil)
	candidate := testCandidate
	candidate.PDFURL = serverURL + "/123.pdf"
	return NewManager(fetcher, opts, nil), candidate
}

func pdfServer(t *testing.T, content string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPathForIsDeterministic(t *testing.T) {
	t.Parallel()

	m := NewManager(nil, Options{OutDir: "out"}, nil)
	want := filepath.Join("out", "India",
		"P149286_second-karnataka-state-highway-improvement-project",
		"PAD", "2019-05-01_PAD2894_project-appraisal-document_en.pdf")

	got := m.PathFor(testProject, testCandidate, domain.TypePAD)
	assert.Equal(t, want, got)
	assert.Equal(t, got, m.PathFor(testProject, testCandidate, domain.TypePAD))
}

func TestPathForFillsDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager(nil, Options{OutDir: "out"}, nil)
	candidate := domain.DocumentCandidate{Title: "Loan Proposal"}
	got := m.PathFor(testProject, candidate, domain.TypeLoanProposal)
	assert.Equal(t, "0000-00-00_NO-REPNB_loan-proposal_xx.pdf", filepath.Base(got))
}

func TestStoreDownloadsNewFile(t *testing.T) {
	t.Parallel()

	server := pdfServer(t, "%PDF-1.4 fake content", nil)
	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{})

	entry := m.Store(context.Background(), testProject, candidate, domain.TypePAD)

	require.Equal(t, domain.StatusDownloaded, entry.Status)
	require.NotEmpty(t, entry.SavedPath)
	data, err := os.ReadFile(entry.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake content", string(data))
	assert.Len(t, entry.SHA256, 64)

	// No temp leftovers in the destination directory.
	dir := filepath.Dir(entry.SavedPath)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreSkipsIdenticalExisting(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := pdfServer(t, "same bytes", &hits)
	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{})

	first := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, first.Status)

	second := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	assert.Equal(t, domain.StatusSkippedExisting, second.Status)
	assert.Equal(t, first.SavedPath, second.SavedPath)
	assert.Equal(t, first.SHA256, second.SHA256)
}

func TestStoreVersionsOnContentConflict(t *testing.T) {
	t.Parallel()

	var content atomic.Value
	content.Store("original bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content.Load().(string)))
	}))
	t.Cleanup(server.Close)

	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{})

	first := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, first.Status)

	content.Store("revised bytes")
	second := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, second.Status)

	assert.Contains(t, filepath.Base(second.SavedPath), "-v2")
	assert.NotEqual(t, first.SavedPath, second.SavedPath)

	// The original file is left untouched.
	data, err := os.ReadFile(first.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(data))

	content.Store("third revision")
	third := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, third.Status)
	assert.Contains(t, filepath.Base(third.SavedPath), "-v3")
}

func TestStoreVersionStartConfigurable(t *testing.T) {
	t.Parallel()

	var content atomic.Value
	content.Store("original bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content.Load().(string)))
	}))
	t.Cleanup(server.Close)

	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{VersionStart: 5})

	first := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, first.Status)

	content.Store("revised bytes")
	second := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	require.Equal(t, domain.StatusDownloaded, second.Status)
	assert.Contains(t, filepath.Base(second.SavedPath), "-v5")
}

func TestStoreDryRunHasNoSideEffects(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := pdfServer(t, "never fetched", &hits)
	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{DryRun: true})

	entry := m.Store(context.Background(), testProject, candidate, domain.TypePAD)

	assert.Equal(t, domain.StatusDryRun, entry.Status)
	assert.NotEmpty(t, entry.SavedPath)
	assert.Equal(t, int32(0), hits.Load())
	_, err := os.Stat(entry.SavedPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreFailsWithoutPDFURL(t *testing.T) {
	t.Parallel()

	m := NewManager(fetch.NewClient(fetch.Options{MaxAttempts: 1}, nil), Options{OutDir: t.TempDir()}, nil)
	candidate := domain.DocumentCandidate{Title: "No URL", SourceURL: "https://example.org/page.html"}

	entry := m.Store(context.Background(), testProject, candidate, domain.TypePID)
	assert.Equal(t, domain.StatusFailed, entry.Status)
	assert.Empty(t, entry.SavedPath)
}

func TestStoreFallsBackToPDFLookingSourceURL(t *testing.T) {
	t.Parallel()

	server := pdfServer(t, "pdf body", nil)
	m := NewManager(fetch.NewClient(fetch.Options{MaxAttempts: 1}, nil), Options{OutDir: t.TempDir()}, nil)
	candidate := domain.DocumentCandidate{
		Title:     "Indirect",
		SourceURL: server.URL + "/docs/report.pdf",
	}

	entry := m.Store(context.Background(), testProject, candidate, domain.TypePID)
	assert.Equal(t, domain.StatusDownloaded, entry.Status)
	assert.Equal(t, candidate.SourceURL, entry.PDFURL)
}

func TestStoreFailedFetchYieldsFailedEntry(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	outDir := t.TempDir()
	m, candidate := newManager(t, server.URL, outDir, Options{})

	entry := m.Store(context.Background(), testProject, candidate, domain.TypePAD)
	assert.Equal(t, domain.StatusFailed, entry.Status)
	assert.Empty(t, entry.SHA256)
}
