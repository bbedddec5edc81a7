package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conformadev/conforma/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long:  `Runs an interactive wizard that writes .conforma.yml in the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			return fmt.Errorf("%s already exists; remove it first to reconfigure", config.DefaultPath)
		}

		cfg, err := config.RunWizard()
		if err != nil {
			return err
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
