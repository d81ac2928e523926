package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath    string
	phaseOverride string
)

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Associative memory graph engine",
	Long: "Mnemo keeps a graph of memory nodes that learns from use: spreading activation " +
		"retrieves, Hebbian learning strengthens, consolidation groups and prunes.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.mnemo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&phaseOverride, "phase", "",
		"Engine phase for this run (explore, inference, consolidate); overrides MNEMO_PHASE and the saved phase")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(phaseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
