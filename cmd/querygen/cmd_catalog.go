package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"querygen/internal/catalog"
	"querygen/internal/corpus"
	"querygen/internal/ui"
)

func catalogPaths(cmd *cobra.Command, flagged []string) []string {
	if cmd.Flags().Changed("catalog") {
		return flagged
	}
	return currentConfig().Catalogs
}

func newCategoriesCmd() *cobra.Command {
	var (
		catalogs    []string
		dumpDefault bool
	)
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories with their targets and combinatorial space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dumpDefault {
				_, err := cmd.OutOrStdout().Write(catalog.DefaultBytes())
				return err
			}
			cat, err := catalog.Resolve(catalogPaths(cmd, catalogs))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCategories(cat))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&catalogs, "catalog", "c", nil, "Catalog file (repeatable; default: embedded catalog)")
	cmd.Flags().BoolVar(&dumpDefault, "dump-default", false, "Print the embedded default catalog as YAML")
	return cmd
}

func renderCategories(cat *catalog.Catalog) string {
	t := ui.NewTable("Categories", "LABEL", "TARGET", "TEMPLATES", "POOLS", "VALUES", "SPACE").AlignRight(1, 2, 3, 4, 5)
	target := 0
	for _, c := range cat.Categories {
		d := catalog.Describe(c)
		target += d.Target
		t.AddRow(d.Label, strconv.Itoa(d.Target), strconv.Itoa(d.Templates), strconv.Itoa(d.Pools), strconv.Itoa(d.Values), formatSpace(d.Space))
	}
	return t.View(ui.DefaultStyles()) +
		fmt.Sprintf("%d categories, %d records requested before dedup\n", len(cat.Categories), target)
}

func formatSpace(n uint64) string {
	if n == math.MaxUint64 {
		return ">" + strconv.FormatUint(n, 10)
	}
	return strconv.FormatUint(n, 10)
}

func newValidateCmd() *cobra.Command {
	var catalogs []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check catalog files for schema and category errors",
		Long: `Parses each catalog against the catalog schema and builds every category,
reporting the first problem found. Categories whose template space is smaller
than their target are reported as warnings: they will shrink after dedup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Resolve(catalogPaths(cmd, catalogs))
			if err != nil {
				return err
			}
			styles := ui.DefaultStyles()
			out := cmd.OutOrStdout()
			for _, w := range shrinkWarnings(cat.Categories) {
				fmt.Fprintln(out, styles.Warning.Render("warning: ")+w)
			}
			fmt.Fprintf(out, "%s %d categories from %v\n", styles.Success.Render("ok:"), len(cat.Categories), cat.Sources)
			fmt.Fprintf(out, "digest: %s\n", cat.Digest)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&catalogs, "catalog", "c", nil, "Catalog file (repeatable; default: embedded catalog)")
	return cmd
}

func shrinkWarnings(cats []*corpus.Category) []string {
	var out []string
	for _, c := range cats {
		if space := c.Space(); space < uint64(c.Target()) {
			out = append(out, fmt.Sprintf("%s: at most %d distinct queries for a target of %d", c.Label(), space, c.Target()))
		}
	}
	return out
}
