package usecase

import (
	"context"
	"log/slog"
	"sort"

	"DocHarvester/internal/classify"
	"DocHarvester/internal/domain"
	"DocHarvester/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.DocumentSource
	Store      ports.DocumentStore
	Classifier *classify.Classifier
	History    ports.DownloadHistory
	Logger     *slog.Logger
}

// Options selects per-run filtering behavior.
type Options struct {
	// Languages is "en" (English preferred, first available candidate as
	// fallback) or "all".
	Languages  string
	LatestOnly bool
	RunID      string
}

// RunResult aggregates everything a run produced.
type RunResult struct {
	Manifest  []domain.ManifestEntry
	Summaries []domain.SummaryEntry
	Stats     domain.RunStats
	Types     []domain.DocumentType
}

// Pipeline implements the harvest workflow: discover documents per project,
// classify, filter, store, and fold attempts into a per-project summary.
// Per-document failures become failed manifest rows and never abort the
// batch.
type Pipeline struct {
	source     ports.DocumentSource
	store      ports.DocumentStore
	classifier *classify.Classifier
	history    ports.DownloadHistory
	logger     *slog.Logger
	opts       Options
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		store:      deps.Store,
		classifier: deps.Classifier,
		history:    deps.History,
		logger:     deps.Logger,
		opts:       opts,
	}
}

// Run processes projects sequentially and returns the combined manifest,
// per-project summaries, and counters for the whole batch.
func (p *Pipeline) Run(ctx context.Context, projects []domain.ProjectRecord) (RunResult, error) {
	result := RunResult{
		Types: p.classifier.Types(),
		Stats: domain.RunStats{ProjectsByType: map[domain.DocumentType]int{}},
	}

	for i, project := range projects {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		p.info("processing project", "index", i+1, "total", len(projects), "project", project.ID, "country", project.Country)
		summary, entries := p.processProject(ctx, project)

		result.Manifest = append(result.Manifest, entries...)
		result.Summaries = append(result.Summaries, summary)
		result.Stats.TotalProjects++
		for _, t := range result.Types {
			if ts := summary.ByType[t]; ts != nil && ts.Present {
				result.Stats.ProjectsByType[t]++
			}
		}
		for _, entry := range entries {
			switch entry.Status {
			case domain.StatusDownloaded:
				result.Stats.Downloaded++
			case domain.StatusSkippedExisting:
				result.Stats.Skipped++
			case domain.StatusDryRun:
				result.Stats.DryRun++
			case domain.StatusFailed:
				result.Stats.Failed++
			}
		}
	}

	return result, nil
}

func (p *Pipeline) processProject(ctx context.Context, project domain.ProjectRecord) (domain.SummaryEntry, []domain.ManifestEntry) {
	summary := domain.SummaryEntry{
		Country:      project.Country,
		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		ByType:       map[domain.DocumentType]*domain.TypeSummary{},
	}

	candidates, err := p.source.Discover(ctx, project)
	if err != nil {
		p.warn("discovery failed", "project", project.ID, "error", err)
		entry := domain.ManifestEntry{
			Country:      project.Country,
			ProjectID:    project.ID,
			ProjectTitle: project.Title,
			DocType:      domain.TypeUnknown,
			Status:       domain.StatusFailed,
		}
		p.recordHistory(ctx, entry)
		return summary, []domain.ManifestEntry{entry}
	}
	if len(candidates) == 0 {
		p.info("no documents found", "project", project.ID)
		return summary, nil
	}

	byType := p.classifyCandidates(candidates)
	for t, typed := range byType {
		summary.ByType[t] = &domain.TypeSummary{Present: true, Count: len(typed)}
	}

	var entries []domain.ManifestEntry
	for _, t := range p.classifier.Types() {
		typed := byType[t]
		if len(typed) == 0 {
			continue
		}

		selected := selectByLanguage(typed, p.opts.Languages)
		if p.opts.LatestOnly {
			selected = selectLatestPerLanguage(selected)
		}

		for _, candidate := range selected {
			entry := p.store.Store(ctx, project, candidate, t)
			entries = append(entries, entry)
			p.recordHistory(ctx, entry)

			if entry.SavedPath != "" && entry.Status != domain.StatusFailed {
				summary.ByType[t].Paths = append(summary.ByType[t].Paths, entry.SavedPath)
			}
			p.info("document processed", "project", project.ID, "type", t, "status", entry.Status, "path", entry.SavedPath)
		}
	}

	return summary, entries
}

func (p *Pipeline) classifyCandidates(candidates []domain.DocumentCandidate) map[domain.DocumentType][]domain.DocumentCandidate {
	byType := map[domain.DocumentType][]domain.DocumentCandidate{}
	for _, candidate := range candidates {
		t := p.classifier.Classify(candidate.Title)
		if t == domain.TypeUnknown {
			continue
		}
		candidate.Language = classify.NormalizeLanguage(candidate.Language)
		byType[t] = append(byType[t], candidate)
	}
	return byType
}

func (p *Pipeline) recordHistory(ctx context.Context, entry domain.ManifestEntry) {
	if p.history == nil {
		return
	}

	if entry.SHA256 != "" && entry.Status == domain.StatusDownloaded {
		if seen, err := p.history.SeenHash(ctx, entry.SHA256); err != nil {
			p.warn("history lookup failed", "error", err)
		} else if seen {
			p.info("identical content stored by a previous run", "project", entry.ProjectID, "sha256", entry.SHA256)
		}
	}

	err := p.history.RecordAttempt(ctx, domain.HistoryRecord{
		RunID:     p.opts.RunID,
		ProjectID: entry.ProjectID,
		DocType:   entry.DocType,
		SavedPath: entry.SavedPath,
		SHA256:    entry.SHA256,
		Status:    entry.Status,
		CreatedAt: entry.AttemptedAt,
	})
	if err != nil {
		p.warn("history insert failed", "project", entry.ProjectID, "error", err)
	}
}

// selectByLanguage keeps English candidates when languages is "en". When a
// type exists only in translation the first candidate rides through, so the
// project still yields a file for that type.
func selectByLanguage(candidates []domain.DocumentCandidate, languages string) []domain.DocumentCandidate {
	if languages == "all" {
		return candidates
	}

	var english []domain.DocumentCandidate
	for _, c := range candidates {
		if c.Language == "en" {
			english = append(english, c)
		}
	}
	if len(english) > 0 {
		return english
	}
	if len(candidates) > 0 {
		return candidates[:1]
	}
	return nil
}

// selectLatestPerLanguage keeps the most recent candidate per language.
// Dates are ISO strings, so lexicographic order is chronological and
// missing dates sort lowest.
func selectLatestPerLanguage(candidates []domain.DocumentCandidate) []domain.DocumentCandidate {
	byLang := map[string][]domain.DocumentCandidate{}
	var langs []string
	for _, c := range candidates {
		if _, ok := byLang[c.Language]; !ok {
			langs = append(langs, c.Language)
		}
		byLang[c.Language] = append(byLang[c.Language], c)
	}

	var latest []domain.DocumentCandidate
	for _, lang := range langs {
		group := byLang[lang]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PublicationDate > group[j].PublicationDate
		})
		latest = append(latest, group[0])
	}
	return latest
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
