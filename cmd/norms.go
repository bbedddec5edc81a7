package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conformadev/conforma/internal/kb"
)

var normsCmd = &cobra.Command{
	Use:   "norms",
	Short: "List knowledge-base coverage of regulatory norms",
	Long: `Shows which norms have full text stored in the knowledge directory and
which are only covered by the embedded catalog summaries. Analyses citing a
norm without full text carry a lower confidence score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := kb.NewStore(cfg.KnowledgeDir)
		local, err := store.Available()
		if err != nil {
			return err
		}

		onDisk := make(map[string]bool, len(local))
		fmt.Printf("Norm texts in %s:\n", cfg.KnowledgeDir)
		if len(local) == 0 {
			fmt.Println("  (none)")
		}
		for _, code := range local {
			onDisk[code] = true
			fmt.Printf("  %s (full text)\n", code)
		}

		fmt.Println("\nCatalog summaries (used when no full text exists):")
		for _, code := range kb.CatalogCodes() {
			if onDisk[code] {
				continue
			}
			fmt.Printf("  %s (summary only)\n", code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normsCmd)
}
