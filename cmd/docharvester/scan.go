package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"DocHarvester/internal/app"
	"DocHarvester/internal/config"
	"DocHarvester/internal/logging"
)

func newScanCmd() *cobra.Command {
	var (
		output       string
		columns      []string
		keywordsFile string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "scan <input.csv>",
		Short: "Annotate a CSV table with keyword matches per column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if len(columns) > 0 {
				cfg.Scan.Columns = columns
			}
			if keywordsFile != "" {
				cfg.Keywords.File = keywordsFile
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			input := args[0]
			if output == "" {
				output = defaultScanOutput(input)
			}

			logger := logging.New(cfg.Logging.Level)
			application := app.New(cfg, logger)
			defer application.Close()

			stats, err := application.RunScan(cmd.Context(), input, output)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d rows, %d with matches -> %s\n",
				stats.Rows, stats.RowsWithMatches, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "annotated output path (default <input>_keywords.csv)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to scan (default: every column)")
	cmd.Flags().StringVar(&keywordsFile, "keywords-file", "", "file with one keyword per line, added to the built-in set")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log verbosity: debug, info, warn, error")
	return cmd
}

func defaultScanOutput(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		return input + "_keywords.csv"
	}
	return strings.TrimSuffix(input, ext) + "_keywords" + ext
}
