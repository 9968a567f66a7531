package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file with environment overrides and report every
validation error. Exits with code 2 when the configuration is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		fmt.Fprintf(cmd.OutOrStdout(), "  Backend:  %s\n", cfg.Research.Backend)
		fmt.Fprintf(cmd.OutOrStdout(), "  Cache:    %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
		fmt.Fprintf(cmd.OutOrStdout(), "  Tasks:    %s\n", cfg.Tasks.Backend)
		fmt.Fprintf(cmd.OutOrStdout(), "  Listen:   %s\n", cfg.Server.ListenAddress)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
