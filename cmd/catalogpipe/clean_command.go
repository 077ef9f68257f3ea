package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/clean"
)

var rawColumns = []string{
	"name", "description", "test_type", "duration_text",
	"duration_minutes", "adaptive_support", "remote_support", "url",
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a raw seed CSV into the catalog snapshot format",
		Long: "Clean strips HTML and markdown artifacts from raw text, normalizes\n" +
			"names, booleans and durations, drops duplicate assessments and\n" +
			"writes the result as a catalog snapshot ready for enrichment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if inPath == "" {
				inPath = cfg.Paths.RawSeed
			}
			if outPath == "" {
				outPath = cfg.Paths.Catalog
			}

			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("open raw seed: %w", err)
			}
			records, err := catalog.ReadCSV(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("read raw seed %s: %w", inPath, err)
			}

			cleaned, report := clean.Records(records)

			store := catalog.New(outPath, cleaned)
			if err := store.Persist(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Rows read", strconv.Itoa(report.Input)},
					{"Rows written", strconv.Itoa(report.Output)},
					{"Duplicates removed", strconv.Itoa(report.Duplicates)},
					{"Empty rows dropped", strconv.Itoa(report.Dropped)},
				},
			))

			if report.Output > 0 {
				fillRows := make([][]string, 0, len(rawColumns))
				for _, col := range rawColumns {
					filled := report.FieldFill[col]
					fillRows = append(fillRows, []string{
						col,
						fmt.Sprintf("%d/%d", filled, report.Output),
						fmt.Sprintf("%.1f%%", float64(filled)/float64(report.Output)*100),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Column", "Filled", "Share"}, fillRows))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "Raw seed CSV (defaults to paths.raw_seed)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output snapshot (defaults to paths.catalog)")
	return cmd
}
