package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "primer",
	Short: "Incremental guideline extraction from educational source material",
	Long: `Primer turns educational source documents (textbooks, curricula) into
structured teaching guideline units, one page at a time.

The pipeline includes:
  - Per-page digests with a sliding context window
  - Topic boundary detection with hysteresis scoring
  - Deterministic merging of page evidence into units
  - Stability tracking, synthesis, and quality gating
  - Document-wide deduplication at finalization`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.primer/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "primer home directory (default: ~/.primer)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
