package provider

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DocHarvester/internal/discovery"
	"DocHarvester/internal/domain"
	"DocHarvester/internal/fetch"
)

const idbDefaultBaseURL = "https://www.iadb.org"

// IDBProvider scrapes IDB project pages for document cards. The project
// site exposes no JSON search API, so discovery works off the rendered
// HTML, trying the URL variants the site has used over time.
type IDBProvider struct {
	fetcher *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// NewIDBProvider wires the retrying fetch client; baseURL defaults to the
// public IDB site.
func NewIDBProvider(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *IDBProvider {
	if baseURL == "" {
		baseURL = idbDefaultBaseURL
	}
	return &IDBProvider{fetcher: fetcher, baseURL: baseURL, logger: logger}
}

// Name identifies the strategy inside the registry.
func (p *IDBProvider) Name() string {
	return "idb"
}

// Discover fetches the first resolvable project page variant and extracts
// its document cards, deduplicated by URL.
func (p *IDBProvider) Discover(ctx context.Context, req discovery.Request) ([]domain.DocumentCandidate, error) {
	if req.Project.ID == "" {
		return nil, fmt.Errorf("project id is empty")
	}

	base := strings.TrimSuffix(p.baseURL, "/")
	variants := []string{
		base + "/en/project/" + req.Project.ID,
		base + "/en/projects/" + req.Project.ID,
		base + "/projects/" + req.Project.ID,
	}

	var lastErr error
	for _, pageURL := range variants {
		body, err := p.fetcher.Get(ctx, pageURL, nil)
		if err != nil {
			lastErr = err
			continue
		}
		candidates, err := extractDocumentCards(body, pageURL)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", req.Project.ID, err)
		}
		p.debug("idb discovery done", "project", req.Project.ID, "page", pageURL, "candidates", len(candidates))
		return candidates, nil
	}

	return nil, fmt.Errorf("project %s: no project page variant resolved: %w", req.Project.ID, lastErr)
}

func (p *IDBProvider) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func extractDocumentCards(body []byte, pageURL string) ([]domain.DocumentCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse project page: %w", err)
	}

	var candidates []domain.DocumentCandidate
	seen := map[string]struct{}{}

	doc.Find("idb-document-card").Each(func(_ int, card *goquery.Selection) {
		docURL, ok := card.Attr("url")
		if !ok || docURL == "" {
			return
		}
		if _, dup := seen[docURL]; dup {
			return
		}
		seen[docURL] = struct{}{}

		title := strings.TrimSpace(card.Find(`[slot="heading"]`).First().Text())
		language := strings.TrimSpace(card.Find(`[slot="cta"]`).First().Text())
		date := normalizeCardDate(card.Find(`[slot="date"]`).First().Text())

		candidates = append(candidates, domain.DocumentCandidate{
			Title:           title,
			Language:        language,
			PublicationDate: date,
			SourceURL:       pageURL,
			PDFURL:          docURL,
		})
	})

	return candidates, nil
}

// Layouts the project pages have rendered the date slot in.
var idbDateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	"01/02/2006",
}

// normalizeCardDate reduces scraped date text to ISO form so date ordering
// and path segments stay lexicographically sortable. Text that matches no
// known layout is dropped; downstream selection then falls back to
// discovery order.
func normalizeCardDate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, layout := range idbDateLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return ""
}

var idbCountryCodes = map[string]string{
	"AR": "Argentina", "BO": "Bolivia", "BR": "Brazil", "CH": "Chile",
	"CL": "Chile", "CO": "Colombia", "CR": "Costa Rica", "DR": "Dominican Republic",
	"EC": "Ecuador", "ES": "El Salvador", "GU": "Guatemala", "GY": "Guyana",
	"HA": "Haiti", "HO": "Honduras", "JA": "Jamaica", "ME": "Mexico",
	"MX": "Mexico", "NI": "Nicaragua", "PN": "Panama", "PR": "Paraguay",
	"PY": "Paraguay", "PE": "Peru", "SU": "Suriname", "TT": "Trinidad and Tobago",
	"UR": "Uruguay", "UY": "Uruguay", "VE": "Venezuela",
}

// CountryForProject infers the country from an IDB project number prefix
// (e.g. PE-L1187 -> Peru). Used when the input table has no country value.
func CountryForProject(projectNumber string) string {
	prefix, _, found := strings.Cut(projectNumber, "-")
	if !found {
		return ""
	}
	return idbCountryCodes[strings.ToUpper(prefix)]
}
