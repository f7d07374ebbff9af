package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"querygen/internal/corpus"
	"querygen/internal/store"
	"querygen/internal/ui"
)

func newRunsCmd() *cobra.Command {
	var archivePath string

	openStore := func() (*store.Store, error) {
		path := archivePath
		if path == "" {
			path = currentConfig().Archive.Path
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		return st, nil
	}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
	}
	cmd.PersistentFlags().StringVar(&archivePath, "archive-path", "", "Archive database path (default from config)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(contextOf(cmd))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRuns(runs))
			fmt.Fprintf(cmd.OutOrStdout(), "%d runs in %s\n", len(runs), st.Path())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Re-emit an archived corpus (ID may be a unique prefix)",
		Long: `Writes the archived records to stdout as JSON lines, in their original order,
and the run details and summary to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := contextOf(cmd)
			run, err := st.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := st.LoadRecords(ctx, run.ID)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.ErrOrStderr(), renderRun(run))
			_, err = corpus.NewEmitter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Emit(records)
			return err
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRun(contextOf(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func renderRuns(runs []store.Run) string {
	t := ui.NewTable("Archived runs", "ID", "CREATED", "SEED", "MODE", "RECORDS", "DIGEST").AlignRight(2, 4)
	for _, r := range runs {
		mode := "sequential"
		if r.Parallel {
			mode = "parallel"
		}
		t.AddRow(r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.FormatInt(r.Seed, 10),
			mode,
			strconv.Itoa(r.Total),
			shortDigest(r.CatalogDigest))
	}
	return t.View(ui.DefaultStyles())
}

func renderRun(r *store.Run) string {
	mode := "sequential"
	if r.Parallel {
		mode = "parallel"
	}
	return ui.DefaultStyles().RenderFields([][2]string{
		{"id", r.ID},
		{"created", r.CreatedAt.Local().Format(time.RFC3339)},
		{"seed", strconv.FormatInt(r.Seed, 10)},
		{"mode", mode},
		{"records", strconv.Itoa(r.Total)},
		{"catalogs", strings.Join(r.Sources, ", ")},
		{"digest", r.CatalogDigest},
	})
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
