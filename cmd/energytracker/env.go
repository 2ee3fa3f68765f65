package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"energytracker/internal/config"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the supported environment variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
		return err
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
