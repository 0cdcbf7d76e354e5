package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/vector-cv/config"
	"github.com/upb/vector-cv/repositories/postgres"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the pgvector extension and tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			logger, err := initLogger()
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := config.New(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.Store.Driver)
			}

			db, err := postgres.NewDB(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(ctx, cfg.Embedding.Dimensions); err != nil {
				return err
			}

			logger.Info("schema is up to date", zap.Int("embedding_dimensions", cfg.Embedding.Dimensions))
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
