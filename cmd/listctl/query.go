package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vetrina/internal/backend"
	"vetrina/internal/core"
	"vetrina/internal/listing"
	"vetrina/internal/services"
)

func queryCmd() *cobra.Command {
	var (
		q      listing.Query
		sort   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:       "query <kind>",
		Short:     "Run a listing query",
		Long:      `Filter, sort and paginate the records of one kind and print the page with its aggregates.`,
		Example:   "  listctl query products --category \"Beauty & Wellness\" --sort price-asc\n  listctl query transactions --category payment --json",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Sort = listing.ParseSortKey(sort)
			if !cmd.Flags().Changed("page-size") {
				q.PageSize = cfg.DefaultPageSize
			}
			if q.PageSize > cfg.MaxPageSize {
				q.PageSize = cfg.MaxPageSize
			}

			ctx := cmd.Context()
			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			return queryKind(ctx, res.Backend, core.Kind(args[0]), q, cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().StringVarP(&q.Search, "search", "q", "", "free-text search term")
	cmd.Flags().StringVar(&q.Category, "category", "", "category (or transaction type / search hit kind) filter")
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&sort, "sort", "", "sort key (newest, oldest, price-asc, price-desc, relevance)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number, clamped to the available pages")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 0, "records per page (default DEFAULT_PAGE_SIZE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func kindNames() []string {
	kinds := core.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func openBackend(ctx context.Context) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	// One-shot commands must not keep listening for change events.
	backendCfg.AMQPURL = ""
	return backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
}

func queryKind(ctx context.Context, b *backend.Backend, kind core.Kind, q listing.Query, out io.Writer, asJSON bool) error {
	switch kind {
	case core.KindProducts:
		return runQuery(ctx, b.Products, q, out, asJSON)
	case core.KindFundraisers:
		return runQuery(ctx, b.Fundraisers, q, out, asJSON)
	case core.KindEvents:
		return runQuery(ctx, b.Events, q, out, asJSON)
	case core.KindTransactions:
		return runQuery(ctx, b.Transactions, q, out, asJSON)
	case core.KindInvoices:
		return runQuery(ctx, b.Invoices, q, out, asJSON)
	case core.KindSearch:
		return runQuery(ctx, b.Search, q, out, asJSON)
	default:
		return fmt.Errorf("unknown kind %q, want one of %s", kind, strings.Join(kindNames(), ", "))
	}
}

func runQuery[T core.Record](ctx context.Context, svc *services.ListingService[T], q listing.Query, out io.Writer, asJSON bool) error {
	res, err := svc.Query(ctx, q)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			listing.Result[T]
			IgnoredFilters []string `json:"ignored_filters"`
		}{res, services.ErrorStrings(res.Ignored)})
	}
	return writeResult(out, res)
}

// writeResult prints one line per record followed by the aggregates.
func writeResult[T core.Record](out io.Writer, res listing.Result[T]) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if res.Empty() {
		fmt.Fprintln(w, "No results.")
	} else {
		fmt.Fprintln(w, "ID\tRECORD")
		for _, item := range res.Items {
			body, err := json.Marshal(item)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", item.Key(), body)
		}
	}

	fmt.Fprintf(w, "\nPage %d of %d\t%d matches\n", res.Page, res.TotalPages, res.TotalMatches)

	names := make([]string, 0, len(res.Aggregates))
	for name := range res.Aggregates {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, res.Aggregates[name].String())
	}
	for _, err := range res.Ignored {
		fmt.Fprintf(w, "ignored\t%s\n", err)
	}
	return w.Flush()
}
