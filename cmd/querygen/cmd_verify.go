package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"querygen/internal/catalog"
	"querygen/internal/corpus"
	"querygen/internal/ui"
)

func newVerifyCmd() *cobra.Command {
	var (
		catalogs    []string
		anyCategory bool
	)
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check an existing JSON-lines corpus",
		Long: `Checks that every record has non-empty, fully substituted query text, that no
query text repeats, and that every category label is declared in the catalog.
Use "-" to read the corpus from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readCorpus(cmd, args[0])
			if err != nil {
				return err
			}

			var labels []string
			if !anyCategory {
				cat, err := catalog.Resolve(catalogPaths(cmd, catalogs))
				if err != nil {
					return err
				}
				labels = cat.Labels()
			}

			if err := corpus.Verify(records, labels); err != nil {
				return err
			}

			s := corpus.Summarize(records)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d records, %d categories\n",
				ui.DefaultStyles().Success.Render("ok:"), s.Total, len(s.Counts))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&catalogs, "catalog", "c", nil, "Catalog file declaring the valid labels (repeatable)")
	cmd.Flags().BoolVar(&anyCategory, "any-category", false, "Skip the category label check")
	return cmd
}

func readCorpus(cmd *cobra.Command, path string) ([]corpus.Record, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open corpus: %w", err)
		}
		defer f.Close()
		r = f
	}
	records, err := corpus.ReadRecords(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
