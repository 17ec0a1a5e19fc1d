package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"DocHarvester/internal/discovery"
	"DocHarvester/internal/domain"
)

const idbProjectPage = `
<html><body>
  <idb-document-card url="https://www.example.org/document.cfm?id=1">
    <div slot="heading">Loan Proposal</div>
    <div slot="date">2020-06-15</div>
    <div slot="cta">English</div>
  </idb-document-card>
  <idb-document-card url="https://www.example.org/document.cfm?id=1">
    <div slot="heading">Loan Proposal (duplicate card)</div>
    <div slot="cta">English</div>
  </idb-document-card>
  <idb-document-card url="https://www.example.org/document.cfm?id=2">
    <div slot="heading">Síntesis del Proyecto</div>
    <div slot="cta">Spanish</div>
  </idb-document-card>
  <idb-document-card>
    <div slot="heading">Card without URL</div>
  </idb-document-card>
</body></html>`

func TestIDBDiscoverExtractsDocumentCards(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/en/project/PE-L1187" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(idbProjectPage))
	}))
	defer server.Close()

	p := NewIDBProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "PE-L1187"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (dedupe by url, drop cardless), got %d", len(candidates))
	}
	if candidates[0].Title != "Loan Proposal" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
	if candidates[0].Language != "English" {
		t.Fatalf("unexpected language: %s", candidates[0].Language)
	}
	if candidates[0].PublicationDate != "2020-06-15" {
		t.Fatalf("unexpected date: %s", candidates[0].PublicationDate)
	}
	if candidates[1].Title != "Síntesis del Proyecto" {
		t.Fatalf("unexpected second title: %s", candidates[1].Title)
	}
}

func TestIDBDiscoverTriesURLVariants(t *testing.T) {
	t.Parallel()

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/projects/PE-L1187" {
			_, _ = w.Write([]byte(idbProjectPage))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	p := NewIDBProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "PE-L1187"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected candidates from the last variant, got %d", len(candidates))
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 variant attempts, got %v", paths)
	}
}

func TestIDBDiscoverAllVariantsFail(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	p := NewIDBProvider(newFetcher(t), server.URL, nil)
	if _, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "PE-L1187"},
	}); err == nil {
		t.Fatal("expected error when no variant resolves")
	}
}

func TestIDBDiscoverNormalizesDates(t *testing.T) {
	t.Parallel()

	page := `
<html><body>
  <idb-document-card url="https://www.example.org/document.cfm?id=1">
    <div slot="heading">Loan Proposal</div>
    <div slot="date">Jun 15, 2020</div>
  </idb-document-card>
  <idb-document-card url="https://www.example.org/document.cfm?id=2">
    <div slot="heading">Loan Proposal</div>
    <div slot="date">Last updated recently</div>
  </idb-document-card>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	p := NewIDBProvider(newFetcher(t), server.URL, nil)
	candidates, err := p.Discover(context.Background(), discovery.Request{
		Project: domain.ProjectRecord{ID: "PE-L1187"},
	})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].PublicationDate != "2020-06-15" {
		t.Fatalf("expected ISO date, got %q", candidates[0].PublicationDate)
	}
	if candidates[1].PublicationDate != "" {
		t.Fatalf("unparseable date text must be dropped, got %q", candidates[1].PublicationDate)
	}
}

func TestNormalizeCardDate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2020-06-15":        "2020-06-15",
		"Jun 15, 2020":      "2020-06-15",
		"January 3, 2019":   "2019-01-03",
		"15 Jun 2020":       "2020-06-15",
		"June 2018":         "2018-06-01",
		"  Dec 1, 2021  ":   "2021-12-01",
		"Last updated soon": "",
		"":                  "",
	}
	for in, want := range cases {
		if got := normalizeCardDate(in); got != want {
			t.Fatalf("normalizeCardDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCountryForProject(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"PE-L1187": "Peru",
		"br-t1234": "Brazil",
		"XX-L0001": "",
		"noprefix": "",
	}
	for in, want := range cases {
		if got := CountryForProject(in); got != want {
			t.Fatalf("CountryForProject(%q) = %q, want %q", in, got, want)
		}
	}
}
