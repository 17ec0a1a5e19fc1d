package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"DocHarvester/internal/discovery"
	"DocHarvester/internal/domain"
	"DocHarvester/internal/fetch"
)

func TestWorldBankDiscoverOldFormat(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("proid"); got != "P149286" {
			t.Errorf("unexpected proid: %s", got)
		}
		_, _ = w.Write([]byte(`{
			"response": {"docs": [
				{
					"docna": "Project Appraisal Document",
					"docty": "Project Appraisal Document",
					"docdt": "2019-05-01T00:00:00Z",
					"lang": "English",
					"repnb": "PAD2894",
					"url": "https://documents.example.org/curated/123",
					"pdfurl": "https://documents.example.org/123.pdf"
				}
			]}
		}`))
	}))
	defer server.Close()

	p := NewWorldBankProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "P149286"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.Title != "Project Appraisal Document" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
	if got.PublicationDate != "2019-05-01" {
		t.Fatalf("ISO timestamp not trimmed: %s", got.PublicationDate)
	}
	if got.ReportNumber != "PAD2894" {
		t.Fatalf("unexpected report number: %s", got.ReportNumber)
	}
	if got.PDFURL != "https://documents.example.org/123.pdf" {
		t.Fatalf("unexpected pdf url: %s", got.PDFURL)
	}
}

func TestWorldBankDiscoverNewFormat(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"documents": {
				"D001": {
					"docna": {"0": {"docna": "Project Information Document"}},
					"docdt": "2018-02-03",
					"lang": "English",
					"repnb": "PIDC123",
					"pdfurl": "https://documents.example.org/pid.pdf"
				},
				"facets": {}
			}
		}`))
	}))
	defer server.Close()

	p := NewWorldBankProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "P000001"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Title != "Project Information Document" {
		t.Fatalf("nested docna not decoded: %s", candidates[0].Title)
	}
}

func TestWorldBankDiscoverPaginates(t *testing.T) {
	t.Parallel()

	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("os")
		offsets = append(offsets, offset)

		if offset == "0" {
			// A full page signals more results.
			fmt.Fprint(w, `{"response": {"docs": [`)
			for i := 0; i < wdsPageSize; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"docna": "Doc %d", "pdfurl": "https://x/%d.pdf"}`, i, i)
			}
			fmt.Fprint(w, `]}}`)
			return
		}
		_, _ = w.Write([]byte(`{"response": {"docs": []}}`))
	}))
	defer server.Close()

	p := NewWorldBankProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "P000002"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	if len(candidates) != wdsPageSize {
		t.Fatalf("expected %d candidates, got %d", wdsPageSize, len(candidates))
	}
	if len(offsets) != 2 || offsets[1] != "200" {
		t.Fatalf("expected second page at offset 200, got %v", offsets)
	}
}

func TestWorldBankDiscoverRequiresProjectID(t *testing.T) {
	t.Parallel()

	p := NewWorldBankProvider(newFetcher(t), "http://unused", nil)
	if _, err := p.Discover(context.Background(), discovery.Request{}); err == nil {
		t.Fatal("expected error for empty project id")
	}
}

func newFetcher(t *testing.T) *fetch.Client {
	t.Helper()
	return fetch.NewClient(fetch.Options{MaxAttempts: 1}, nil)
}
