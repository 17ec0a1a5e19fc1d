package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"DocHarvester/internal/discovery"
	"DocHarvester/internal/domain"
	"DocHarvester/internal/fetch"
)

const (
	wdsDefaultBaseURL = "https://search.worldbank.org/api/v2/wds"
	wdsPageSize       = 200
	wdsFieldList      = "docna,docty,docdt,lang,repnb,url,pdfurl,projn,proid,countryshortname"
)

// WorldBankProvider discovers project documents through the WDS search API,
// paginating until a short page signals the end of the result set.
type WorldBankProvider struct {
	fetcher  *fetch.Client
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

// NewWorldBankProvider wires the retrying fetch client; baseURL defaults to
// the public WDS endpoint.
func NewWorldBankProvider(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *WorldBankProvider {
	if baseURL == "" {
		baseURL = wdsDefaultBaseURL
	}
	return &WorldBankProvider{fetcher: fetcher, baseURL: baseURL, pageSize: wdsPageSize, logger: logger}
}

// Name identifies the strategy inside the registry.
func (p *WorldBankProvider) Name() string {
	return "worldbank"
}

// Discover pages through the WDS API and returns every document attached to
// the project.
func (p *WorldBankProvider) Discover(ctx context.Context, req discovery.Request) ([]domain.DocumentCandidate, error) {
	if req.Project.ID == "" {
		return nil, fmt.Errorf("project id is empty")
	}

	var candidates []domain.DocumentCandidate
	offset := 0
	for {
		page, err := p.fetchPage(ctx, req.Project.ID, offset)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", req.Project.ID, err)
		}
		if len(page) == 0 {
			break
		}

		candidates = append(candidates, page...)
		if len(page) < p.pageSize {
			break
		}
		offset += p.pageSize
	}

	p.debug("wds discovery done", "project", req.Project.ID, "candidates", len(candidates))
	return candidates, nil
}

func (p *WorldBankProvider) fetchPage(ctx context.Context, projectID string, offset int) ([]domain.DocumentCandidate, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("includepublicdocs", "1")
	params.Set("rows", strconv.Itoa(p.pageSize))
	params.Set("os", strconv.Itoa(offset))
	params.Set("proid", projectID)
	params.Set("fl", wdsFieldList)

	var payload wdsResponse
	if err := p.fetcher.GetJSON(ctx, p.baseURL, params, &payload); err != nil {
		return nil, err
	}

	docs := payload.docs()
	candidates := make([]domain.DocumentCandidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, doc.toCandidate())
	}
	return candidates, nil
}

func (p *WorldBankProvider) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

// wdsResponse tolerates both response shapes the API has served: the older
// {"response": {"docs": [...]}} list and the newer {"documents": {...}}
// object keyed by document id.
type wdsResponse struct {
	Response struct {
		Docs []wdsDocument `json:"docs"`
	} `json:"response"`
	Documents map[string]json.RawMessage `json:"documents"`
}

func (r wdsResponse) docs() []wdsDocument {
	if len(r.Response.Docs) > 0 {
		return r.Response.Docs
	}

	docs := make([]wdsDocument, 0, len(r.Documents))
	for _, raw := range r.Documents {
		var doc wdsDocument
		// The documents object carries non-document bookkeeping entries
		// (e.g. facets); skip anything that does not decode.
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if doc.DocName.value == "" && doc.PDFURL == "" && doc.URL == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

type wdsDocument struct {
	DocName wdsDocName `json:"docna"`
	DocType string     `json:"docty"`
	DocDate string     `json:"docdt"`
	Lang    string     `json:"lang"`
	RepNb   string     `json:"repnb"`
	URL     string     `json:"url"`
	PDFURL  string     `json:"pdfurl"`
}

func (d wdsDocument) toCandidate() domain.DocumentCandidate {
	title := d.DocName.value
	if title == "" {
		title = d.DocType
	}

	// docdt arrives either as a plain date or an ISO timestamp.
	date := d.DocDate
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}

	return domain.DocumentCandidate{
		Title:           title,
		Language:        d.Lang,
		PublicationDate: date,
		ReportNumber:    d.RepNb,
		SourceURL:       d.URL,
		PDFURL:          d.PDFURL,
	}
}

// wdsDocName decodes the docna field, which is a plain string in the old
// API and a nested {"0": {"docna": "..."}} object in the new one.
type wdsDocName struct {
	value string
}

func (n *wdsDocName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.value = s
		return nil
	}

	var nested map[string]struct {
		DocName string `json:"docna"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil
	}
	if entry, ok := nested["0"]; ok {
		n.value = entry.DocName
		return nil
	}
	for _, entry := range nested {
		if entry.DocName != "" {
			n.value = entry.DocName
			break
		}
	}
	return nil
}
