package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/shipyard/internal/config"
)

func configCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with: the config file
over the defaults, with environment overrides applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "Config file (default ./"+config.FileName+" if present)")

	return cmd
}
