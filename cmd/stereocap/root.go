package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stereocap/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "stereocap",
		Short:         "Operator CLI for the stereocap capture daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	loadConfig := func() (*config.Config, error) {
		cfg, _, _, err := config.Load(configFlag)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newConsoleCommand(loadConfig))
	rootCmd.AddCommand(newSessionsCommand(loadConfig))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}
