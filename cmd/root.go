package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conformadev/conforma/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "conforma",
	Short: "AI-assisted compliance analysis for Brazilian SST documents",
	Long: `Conforma analyzes occupational health and safety documents (PGR, PCMSO,
LTCAT, ASO) against Brazilian regulatory norms (NRs). Large documents are
split into chunks, each chunk is analyzed by an LLM grounded on locally
stored normative texts, and the per-chunk findings are consolidated into a
single report with a confidence assessment.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
