package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/upb/vector-cv/app"
	"github.com/upb/vector-cv/config"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services/content"
	"go.uber.org/zap"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load personal info and experience blocks from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger, err := initLogger()
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			file, err := content.ParseSeedFile(f)
			if err != nil {
				return err
			}

			cfg, err := config.New(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreDriverMemory {
				logger.Warn("seeding the in-memory store; data is discarded when the command exits")
			}

			deps, err := app.NewDependencies(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			summary, err := deps.Content.Seed(ctx, file)
			if err != nil {
				logger.Error("seed failed", zap.Error(err))
				return err
			}

			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func printSummary(w io.Writer, s *content.SeedSummary) {
	if s.ProfileUpdated {
		fmt.Fprintln(w, "personal info: updated")
	}
	fmt.Fprintf(w, "experience blocks: %d created, %d updated\n", s.Created, s.Updated)

	categories := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(w, "  %s: %d\n", c, s.ByCategory[models.Category(c)])
	}
}
