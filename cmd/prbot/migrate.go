package main

import (
	"context"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the integration lock store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		log.Infow("lock store ready", "backend", cfg.Store.Backend)
		return repo.OnStop(context.Background())
	},
}
