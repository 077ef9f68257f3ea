package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/enrich/gemini"
	"github.com/talentsift/catalog-pipeline/internal/pipeline"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Enrich pending catalog records via the Gemini API",
		Long: "Enrich walks every record whose enrichment columns are still blank,\n" +
			"sends them to Gemini in small batches and checkpoints the catalog\n" +
			"after every successful batch. Interrupted runs resume where they\n" +
			"left off.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			store, err := catalog.Open(cfg.Paths.Catalog)
			if err != nil {
				return err
			}

			enricher, err := gemini.New(cmd.Context(), gemini.Config{
				APIKey:  cfg.APIKey,
				Model:   cfg.Gemini.Model,
				BaseURL: cfg.Gemini.BaseURL,
			})
			if err != nil {
				return err
			}

			coord := pipeline.New(store, enricher, ctx.logger, pipeline.Options{
				BatchSize:     cfg.Enrichment.BatchSize,
				RequestDelay:  cfg.RequestDelay(),
				CooldownEvery: cfg.Enrichment.CooldownEvery,
				Cooldown:      cfg.Cooldown(),
			})
			sum, err := coord.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("enrichment run: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Run", sum.RunID},
					{"Records", strconv.Itoa(sum.TotalRecords)},
					{"Pending at start", strconv.Itoa(sum.PendingAtStart)},
					{"Batches dispatched", strconv.Itoa(sum.BatchesDispatched)},
					{"Batches failed", strconv.Itoa(sum.BatchesFailed)},
					{"Records enriched", strconv.Itoa(sum.ItemsApplied)},
					{"Pending left", strconv.Itoa(sum.PendingAtEnd())},
					{"Elapsed", sum.Elapsed.Round(time.Millisecond).String()},
				},
			))
			return nil
		},
	}
}
