package cmd

import (
	"fmt"

	"bank-statement-engine/cmd/extractor/config"

	"github.com/spf13/cobra"
)

// banksCmd lists the registered bank profiles.
var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "List supported banks",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := config.CreateLogger(verbose)
		if err != nil {
			return err
		}

		registry, err := config.CreateRegistry(log, extractProfileDir)
		if err != nil {
			return err
		}

		for _, name := range registry.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(banksCmd)
	banksCmd.Flags().StringVar(&extractProfileDir, "profiles", "", "directory of additional bank profile descriptors")
}
