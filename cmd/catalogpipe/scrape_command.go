package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/scrape"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "List the catalog site and fetch raw detail for each assessment",
		Long: "Scrape pages through the site's listing endpoint, adds unseen\n" +
			"assessments to the catalog and fetches detail for every record that\n" +
			"has no description yet. The catalog is snapshotted periodically, so\n" +
			"an interrupted run resumes without refetching.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			desc, err := scrape.LoadDescriptor(cfg.Paths.Site)
			if err != nil {
				return err
			}
			source, err := scrape.NewHTTPSource(desc)
			if err != nil {
				return err
			}

			store, err := openOrCreateStore(cfg.Paths.Catalog)
			if err != nil {
				return err
			}

			coord := scrape.NewCoordinator(store, source, ctx.logger, scrape.Options{
				MaxAttempts:    cfg.Retrieval.MaxAttempts,
				SnapshotEvery:  cfg.Retrieval.SnapshotEvery,
				RateLimitRPS:   cfg.Retrieval.RateLimitRPS,
				RequestTimeout: cfg.RequestTimeout(),
			})
			sum, err := coord.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("retrieval run: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Pages listed", strconv.Itoa(sum.PagesListed)},
					{"Items listed", strconv.Itoa(sum.ItemsListed)},
					{"Items added", strconv.Itoa(sum.ItemsAdded)},
					{"Details fetched", strconv.Itoa(sum.DetailFetched)},
					{"Details failed", strconv.Itoa(sum.DetailFailed)},
					{"Details skipped", strconv.Itoa(sum.DetailSkipped)},
					{"Elapsed", sum.Elapsed.Round(time.Millisecond).String()},
				},
			))
			return nil
		},
	}
}

// openOrCreateStore loads the catalog snapshot, starting from an empty table
// when none exists yet. Only the scrape path may create the snapshot; every
// other command treats a missing catalog as fatal.
func openOrCreateStore(path string) (*catalog.Store, error) {
	store, err := catalog.Open(path)
	if err == nil {
		return store, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.New(path, nil), nil
	}
	return nil, err
}
