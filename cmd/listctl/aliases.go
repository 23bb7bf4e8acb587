package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vetrina/internal/category"
)

func aliasesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Show the category alias table",
		Long: `List the canonical categories with their aliases, or resolve raw category
strings the way listing filters do.`,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "alias table to load (default CATEGORY_ALIASES_FILE or the built-in table)")

	load := func() (*category.Normalizer, error) {
		if file == "" {
			file = cfg.CategoryAliasesFile
		}
		return category.FromFileOrDefault(file)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List canonical categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := load()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tLABEL\tALIASES")
			for _, def := range n.Definitions() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Key, def.Label, strings.Join(def.Aliases, ", "))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "normalize <category>...",
		Short:   "Resolve raw category strings to canonical keys",
		Example: "  listctl aliases normalize \"Beauty & Wellness\" beauty-wellness spa",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := load()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, raw := range args {
				key := n.Normalize(raw)
				mark := ""
				if !n.IsCanonical(key) {
					mark = "(not in table)"
				}
				fmt.Fprintf(w, "%q\t%s\t%s\n", raw, key, mark)
			}
			return w.Flush()
		},
	})

	return cmd
}
