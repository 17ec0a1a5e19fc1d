package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"DocHarvester/internal/classify"
	"DocHarvester/internal/config"
	"DocHarvester/internal/discovery"
	"DocHarvester/internal/download"
	"DocHarvester/internal/fetch"
	"DocHarvester/internal/infrastructure/history"
	"DocHarvester/internal/infrastructure/provider"
	"DocHarvester/internal/keyword"
	"DocHarvester/internal/logging"
	"DocHarvester/internal/manifest"
	"DocHarvester/internal/ports"
	"DocHarvester/internal/scan"
	"DocHarvester/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	fetcher *fetch.Client
	history *history.SQLiteRepository
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := fetch.NewClient(fetch.Options{
		MaxAttempts:   cfg.Fetch.MaxAttempts,
		BaseDelay:     cfg.Fetch.BaseDelay(),
		Timeout:       cfg.Fetch.Timeout(),
		UserAgent:     cfg.Fetch.UserAgent,
		AllowInsecure: cfg.Fetch.AllowInsecure,
		CurlBinary:    cfg.Fetch.CurlBinary,
	}, baseLogger.With("component", "fetch"))

	return &Application{cfg: cfg, logger: baseLogger, fetcher: fetcher}
}

// Close releases resources opened during a run.
func (a *Application) Close() error {
	return a.history.Close()
}

// RunDownload executes the full harvest: read the project table, discover
// and store documents, append the manifest, and rewrite the summary. The
// returned stats carry the failure count the process exit code is derived
// from.
func (a *Application) RunDownload(ctx context.Context, inputPath string) (usecase.RunResult, error) {
	cols := manifest.Columns{
		ID:      a.cfg.Input.IDColumn,
		Country: a.cfg.Input.CountryColumn,
		Title:   a.cfg.Input.TitleColumn,
	}
	projects, err := manifest.ReadProjects(inputPath, cols)
	if err != nil {
		return usecase.RunResult{}, err
	}

	// IDB exports often omit the country column; the project number prefix
	// encodes it.
	if a.cfg.Provider.Name == "idb" {
		for i := range projects {
			if projects[i].Country == "" {
				projects[i].Country = provider.CountryForProject(projects[i].ID)
			}
		}
	}

	source := a.buildSource()
	store := download.NewManager(a.fetcher, download.Options{
		OutDir:        a.cfg.Download.OutDir,
		DryRun:        a.cfg.Download.DryRun,
		VersionStart:  a.cfg.Download.VersionStart,
		SlugMaxLength: a.cfg.Download.SlugMaxLength,
	}, a.logger.With("component", "download"))

	var downloadHistory ports.DownloadHistory
	if a.cfg.History.Enabled {
		repo, err := history.Open(a.cfg.History.Path)
		if err != nil {
			return usecase.RunResult{}, fmt.Errorf("open download history: %w", err)
		}
		a.history = repo
		downloadHistory = repo
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Store:      store,
		Classifier: classify.New(classify.DefaultRules()),
		History:    downloadHistory,
		Logger:     a.logger.With("component", "pipeline"),
	}, usecase.Options{
		Languages:  a.cfg.Download.Languages,
		LatestOnly: a.cfg.Download.LatestOnly,
		RunID:      uuid.NewString(),
	})

	result, err := pipeline.Run(ctx, projects)
	if err != nil {
		return result, err
	}

	if err := manifest.AppendManifest(a.cfg.Output.ManifestPath, result.Manifest); err != nil {
		return result, err
	}
	if err := manifest.WriteSummary(a.cfg.Output.SummaryPath, result.Summaries, result.Types); err != nil {
		return result, err
	}

	a.logger.Info("run complete",
		"projects", result.Stats.TotalProjects,
		"downloaded", result.Stats.Downloaded,
		"skipped", result.Stats.Skipped,
		"dry_run", result.Stats.DryRun,
		"failed", result.Stats.Failed)
	return result, nil
}

// RunScan annotates a CSV table with keyword matches using the configured
// term set.
func (a *Application) RunScan(_ context.Context, inputPath, outputPath string) (scan.Stats, error) {
	keywords, err := a.loadKeywords()
	if err != nil {
		return scan.Stats{}, err
	}

	scanner := scan.New(keyword.NewMatcher(keywords), a.logger.With("component", "scan"))
	return scanner.ScanFile(inputPath, outputPath, a.cfg.Scan.Columns)
}

func (a *Application) buildSource() ports.DocumentSource {
	registry := discovery.NewRegistry()
	registry.Register(provider.NewWorldBankProvider(a.fetcher, a.cfg.Provider.BaseURL, a.logger.With("component", "provider.worldbank")))
	registry.Register(provider.NewIDBProvider(a.fetcher, a.cfg.Provider.BaseURL, a.logger.With("component", "provider.idb")))

	return provider.NewRegistrySource(registry, a.cfg.Provider.Name, nil, a.logger.With("component", "source"))
}

func (a *Application) loadKeywords() ([]string, error) {
	keywords := append([]string{}, a.cfg.Keywords.List...)
	if a.cfg.Keywords.File != "" {
		fromFile, err := keyword.LoadFile(a.cfg.Keywords.File)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, fromFile...)
	}
	if len(keywords) == 0 {
		keywords = config.DefaultKeywords()
	}
	return keywords, nil
}
