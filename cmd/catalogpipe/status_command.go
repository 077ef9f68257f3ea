package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog snapshot progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.Paths.Catalog)
			if err != nil {
				return err
			}

			total := store.Len()
			pending := len(store.PendingIndices())
			withDetail := 0
			for _, r := range store.Records() {
				if r.Description != "" {
					withDetail++
				}
			}

			pct := "n/a"
			if total > 0 {
				pct = fmt.Sprintf("%.1f%%", float64(total-pending)/float64(total)*100)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Snapshot", store.Path()},
					{"Records", strconv.Itoa(total)},
					{"With raw detail", strconv.Itoa(withDetail)},
					{"Enriched", strconv.Itoa(total - pending)},
					{"Pending", strconv.Itoa(pending)},
					{"Enriched share", pct},
				},
			))
			return nil
		},
	}
}
