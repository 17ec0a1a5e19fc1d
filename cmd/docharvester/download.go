package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"DocHarvester/internal/app"
	"DocHarvester/internal/config"
	"DocHarvester/internal/logging"
)

func newDownloadCmd() *cobra.Command {
	var (
		outDir      string
		providerArg string
		languages   string
		allVersions bool
		dryRun      bool
		historyPath string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "download <projects.csv>",
		Short: "Discover and download project documents listed in a CSV table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if outDir != "" {
				cfg.Download.OutDir = outDir
				cfg.Output.ManifestPath = outDir + "/manifest.csv"
				cfg.Output.SummaryPath = outDir + "/download_summary.csv"
			}
			if providerArg != "" {
				cfg.Provider.Name = providerArg
			}
			if languages != "" {
				cfg.Download.Languages = languages
			}
			if allVersions {
				cfg.Download.LatestOnly = false
			}
			if dryRun {
				cfg.Download.DryRun = true
			}
			if historyPath != "" {
				cfg.History.Enabled = true
				cfg.History.Path = historyPath
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			logger := logging.New(cfg.Logging.Level)
			application := app.New(cfg, logger)
			defer application.Close()

			result, err := application.RunDownload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if result.Stats.Failed > 0 {
				return fmt.Errorf("%d document attempt(s) failed, see %s", result.Stats.Failed, cfg.Output.ManifestPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config, \"out\")")
	cmd.Flags().StringVar(&providerArg, "provider", "", "document source: worldbank or idb")
	cmd.Flags().StringVar(&languages, "languages", "", "language selection: en or all")
	cmd.Flags().BoolVar(&allVersions, "all-versions", false, "keep every document version, not only the latest per type and language")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan paths without fetching or writing PDFs")
	cmd.Flags().StringVar(&historyPath, "history", "", "record attempts in a SQLite history database at this path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log verbosity: debug, info, warn, error")
	return cmd
}
