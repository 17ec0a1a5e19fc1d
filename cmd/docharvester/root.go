package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docharvester",
		Short:         "Harvest development-project documents and scan project tables for keywords",
		Long: "docharvester reads a CSV of development projects, discovers their " +
			"public documents (appraisal documents, information documents, loan " +
			"proposals, abstracts), downloads the PDFs into a deterministic " +
			"directory layout, and records every attempt in a manifest and a " +
			"per-project summary. It can also annotate arbitrary CSV tables " +
			"with livestock keyword matches.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newDownloadCmd())
	root.AddCommand(newScanCmd())
	return root
}
