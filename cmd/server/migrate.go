package main

import (
	"github.com/formvoice/core/internal/config"
	"github.com/formvoice/core/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootArgs.ConfigPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			defer logger.Sync()

			if err := database.EnsureSchema(cfg); err != nil {
				return err
			}
			logger.Info("schema is up to date")
			return nil
		},
	}
}
