package main

import (
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vetrina/internal/core"
	"vetrina/internal/sheets"
	gsheet "vetrina/internal/sheets/google"
	"vetrina/internal/worker"
)

func importCmd() *cobra.Command {
	var tabs string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from the configured spreadsheet once",
		Long: `Read every configured sheet tab and upsert its records into storage.
Rows that fail to parse or validate are skipped and counted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.GoogleSpreadsheetID == "" {
				return errors.New("GOOGLE_SPREADSHEET_ID is not set")
			}
			raw := cfg.SheetTabs
			if tabs != "" {
				raw = tabs
			}
			parsed, err := sheets.ParseTabs(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			source, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID)
			if err != nil {
				return err
			}

			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			w := worker.NewChangeWorker(source, worker.Config{Tabs: parsed}, res.Backend.Targets()...)
			stats, err := w.ImportAll(ctx)
			if err != nil {
				return err
			}

			kinds := make([]core.Kind, 0, len(stats))
			for k := range stats {
				kinds = append(kinds, k)
			}
			slices.Sort(kinds)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tCREATED\tUPDATED\tSKIPPED")
			for _, k := range kinds {
				s := stats[k]
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", k, s.Created, s.Updated, s.Skipped)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&tabs, "tabs", "", "kind=Tab pairs to import (default SHEET_TABS)")

	return cmd
}
