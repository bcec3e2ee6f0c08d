package cmd

import (
	"github.com/spf13/cobra"

	"github.com/amtly/amtly/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize amtly configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the completion provider, languages, database and port, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
