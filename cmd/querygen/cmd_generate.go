package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"querygen/internal/catalog"
	"querygen/internal/corpus"
	"querygen/internal/logging"
	"querygen/internal/randsrc"
	"querygen/internal/store"
	"querygen/internal/ui"
	"querygen/internal/watch"
)

type generateOptions struct {
	seed        int64
	catalogs    []string
	output      string
	append      bool
	parallel    int
	archive     bool
	archivePath string
	watch       bool
	stats       bool
}

// generateSettings is generateOptions merged over the config file.
type generateSettings struct {
	seed        int64
	catalogs    []string
	output      string
	append      bool
	workers     int
	archive     bool
	archivePath string
	watch       bool
	stats       bool
	debounce    time.Duration
}

func addGenerateFlags(cmd *cobra.Command, o *generateOptions) {
	f := cmd.Flags()
	f.Int64Var(&o.seed, "seed", 42, "Random seed")
	f.StringArrayVarP(&o.catalogs, "catalog", "c", nil, "Catalog file (repeatable; default: embedded catalog)")
	f.StringVarP(&o.output, "output", "o", "", "Write the corpus to this file instead of stdout")
	f.BoolVar(&o.append, "append", false, "Append to --output instead of truncating it")
	f.IntVar(&o.parallel, "parallel", 0, "Expand categories on N workers (1 = sequential)")
	f.BoolVar(&o.archive, "archive", false, "Save the run to the SQLite archive")
	f.StringVar(&o.archivePath, "archive-path", "", "Archive database path (default from config)")
	f.BoolVarP(&o.watch, "watch", "w", false, "Regenerate whenever a catalog file changes")
	f.BoolVar(&o.stats, "stats", false, "Print per-category statistics to stderr")
}

func newGenerateCmd() *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a corpus (the default command)",
		Long: `Expands every category in declaration order, drops repeated query texts
(first occurrence wins), shuffles the result and writes one JSON object per line.

Examples:
  querygen generate --seed 42 > corpus.jsonl
  querygen generate -c my-catalog.yaml -o corpus.jsonl --archive
  querygen generate -c my-catalog.yaml -o corpus.jsonl --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, o)
		},
	}
	addGenerateFlags(cmd, o)
	return cmd
}

func (o *generateOptions) resolve(cmd *cobra.Command) generateSettings {
	c := currentConfig()
	changed := cmd.Flags().Changed

	s := generateSettings{
		seed:        c.Seed,
		catalogs:    c.Catalogs,
		output:      c.Output.Path,
		append:      c.Output.Append,
		workers:     c.Workers(),
		archive:     c.Archive.Enabled,
		archivePath: c.Archive.Path,
		watch:       o.watch,
		stats:       o.stats,
		debounce:    c.GetDebounce(),
	}
	if changed("seed") {
		s.seed = o.seed
	}
	if changed("catalog") {
		s.catalogs = o.catalogs
	}
	if changed("output") {
		s.output = o.output
	}
	if changed("append") {
		s.append = o.append
	}
	if changed("parallel") {
		s.workers = o.parallel
	}
	if changed("archive") {
		s.archive = o.archive
	}
	if changed("archive-path") {
		s.archivePath = o.archivePath
		s.archive = true
	}
	return s
}

func runGenerate(cmd *cobra.Command, o *generateOptions) error {
	s := o.resolve(cmd)

	if !s.watch {
		return generateOnce(contextOf(cmd), cmd, s)
	}
	if len(s.catalogs) == 0 {
		return fmt.Errorf("--watch needs at least one --catalog file")
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generateOnce(ctx, cmd, s); err != nil {
		// A broken catalog is reported; the next save gets another chance.
		fmt.Fprintln(cmd.ErrOrStderr(), ui.DefaultStyles().Error.Render("error: ")+err.Error())
	}

	w, err := watch.New(s.catalogs, s.debounce, func(ctx context.Context, changed []string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%d catalog file(s) changed, regenerating\n", len(changed))
		if err := generateOnce(ctx, cmd, s); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.DefaultStyles().Error.Render("error: ")+err.Error())
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "watching catalogs, press Ctrl+C to stop")
	err = w.Run(ctx)
	st := w.Stats()
	logging.Watch("watcher stopped: %d events, %d regenerations, %d errors", st.Events, st.Triggers, st.Errors)
	return err
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// generateOnce runs the full pipeline. Nothing is written to the corpus
// stream unless generation and archiving succeed, and the summary is only
// written once the corpus has been written and closed.
func generateOnce(ctx context.Context, cmd *cobra.Command, s generateSettings) error {
	cat, err := catalog.Resolve(s.catalogs)
	if err != nil {
		return err
	}

	var opts []corpus.Option
	if s.workers > 1 {
		opts = append(opts, corpus.WithParallel(s.workers))
	}
	res, err := corpus.Generate(randsrc.New(s.seed), cat.Categories, opts...)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	// Archive first: a failed archive must leave the corpus stream empty.
	var runID string
	if s.archive {
		runID, err = archiveRun(ctx, s.archivePath, cat, res)
		if err != nil {
			return err
		}
	}

	if err := writeCorpus(cmd, s, res.Records); err != nil {
		if runID != "" {
			discardRun(ctx, s.archivePath, runID)
		}
		return err
	}
	if logger != nil {
		logger.Info("corpus written",
			zap.Int64("seed", res.Seed),
			zap.Int("records", len(res.Records)),
			zap.Bool("parallel", res.Parallel),
			zap.String("digest", cat.Digest))
	}

	if _, err := res.Summary.WriteTo(cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if s.stats {
		fmt.Fprint(cmd.ErrOrStderr(), "\n"+renderStats(res.Stats))
	}
	if runID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "archived run %s\n", runID)
	}
	return nil
}

// writeCorpus emits the records without a summary; the caller reports it
// once every step has succeeded.
func writeCorpus(cmd *cobra.Command, s generateSettings, records []corpus.Record) error {
	out, closeOut, err := openOutput(cmd, s)
	if err != nil {
		return err
	}
	_, emitErr := corpus.NewEmitter(out, nil).Emit(records)
	if err := closeOut(); err != nil && emitErr == nil {
		emitErr = fmt.Errorf("failed to close output: %w", err)
	}
	return emitErr
}

func openOutput(cmd *cobra.Command, s generateSettings) (io.Writer, func() error, error) {
	if s.output == "" || s.output == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if dir := filepath.Dir(s.output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY
	if s.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.output, flags, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output: %w", err)
	}
	return f, f.Close, nil
}

func renderStats(stats []corpus.CategoryStats) string {
	t := ui.NewTable("Category statistics", "CATEGORY", "TARGET", "GENERATED", "SURVIVING", "DROPPED", "SEED").
		AlignRight(1, 2, 3, 4, 5)
	for _, s := range stats {
		t.AddRow(s.Category,
			strconv.Itoa(s.Target),
			strconv.Itoa(s.Generated),
			strconv.Itoa(s.Surviving),
			strconv.Itoa(s.Generated-s.Surviving),
			strconv.FormatInt(s.Seed, 10))
	}
	return t.View(ui.DefaultStyles())
}

func archiveRun(ctx context.Context, path string, cat *catalog.Catalog, res *corpus.Result) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer st.Close()

	run := &store.Run{
		Seed:          res.Seed,
		Parallel:      res.Parallel,
		CatalogDigest: cat.Digest,
		Sources:       cat.Sources,
		Stats:         res.Stats,
	}
	if err := st.SaveRun(ctx, run, res.Records); err != nil {
		return "", err
	}
	return run.ID, nil
}

func discardRun(ctx context.Context, path, id string) {
	st, err := store.Open(path)
	if err != nil {
		logging.StoreWarn("failed to reopen archive to discard run %s: %v", id, err)
		return
	}
	defer st.Close()
	if err := st.DeleteRun(ctx, id); err != nil {
		logging.StoreWarn("failed to discard run %s: %v", id, err)
	}
}
