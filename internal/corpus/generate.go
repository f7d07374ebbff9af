package corpus

import (
	"golang.org/x/sync/errgroup"

	"querygen/internal/logging"
	"querygen/internal/randsrc"
)

// CategoryStats describes what one category contributed to a run.
type CategoryStats struct {
	Category  string `json:"category"`
	Target    int    `json:"target"`
	Generated int    `json:"generated"`
	Surviving int    `json:"surviving"`
	// Seed is the stream the category was expanded on: the root seed in
	// sequential mode, the derived sub-stream seed in parallel mode.
	Seed int64 `json:"seed"`
}

// Result is a finished run: the final corpus plus its bookkeeping.
type Result struct {
	Records  []Record
	Summary  Summary
	Stats    []CategoryStats
	Seed     int64
	Parallel bool
}

// Option configures Generate.
type Option func(*options)

type options struct {
	workers int
}

// WithParallel expands categories concurrently on at most workers goroutines.
// Category i is expanded on src.Derive(i), so output is still reproducible for
// a fixed seed, but differs from the sequential order of draws. Values below 2
// keep sequential mode.
func WithParallel(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// Generate runs assemble, dedup and shuffle over categories. On any error
// nothing is returned: there is no partial corpus.
func Generate(src *randsrc.Source, categories []*Category, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	timer := logging.StartTimer(logging.CategoryCorpus, "generate")
	defer timer.Stop()

	res := &Result{Seed: src.Seed(), Parallel: o.workers > 1}
	seeds := make([]int64, len(categories))

	var assembled []Record
	var err error
	if res.Parallel {
		assembled, seeds, err = assembleParallel(src, categories, o.workers)
	} else {
		assembled, err = Assemble(src, categories)
		for i := range seeds {
			seeds[i] = src.Seed()
		}
	}
	if err != nil {
		return nil, err
	}

	unique := Dedup(assembled)
	res.Records = Shuffle(src, unique)
	res.Summary = Summarize(res.Records)

	for i, c := range categories {
		res.Stats = append(res.Stats, CategoryStats{
			Category:  c.label,
			Target:    c.target,
			Generated: c.target,
			Surviving: res.Summary.Count(c.label),
			Seed:      seeds[i],
		})
	}

	logging.Corpus("generated %d unique records (%d before dedup) across %d categories",
		len(res.Records), len(assembled), len(categories))
	return res, nil
}

// assembleParallel expands each category on its own derived stream and
// concatenates the results in declaration order.
func assembleParallel(src *randsrc.Source, categories []*Category, workers int) ([]Record, []int64, error) {
	if err := checkLabels(categories); err != nil {
		return nil, nil, err
	}

	parts := make([][]Record, len(categories))
	seeds := make([]int64, len(categories))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, c := range categories {
		sub := src.Derive(uint64(i))
		seeds[i] = sub.Seed()
		g.Go(func() error {
			recs, err := Expand(sub, c)
			if err != nil {
				return err
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []Record
	for _, p := range parts {
		out = append(out, p...)
	}
	logging.CorpusDebug("assembled %d records from %d categories on %d workers", len(out), len(categories), workers)
	return out, seeds, nil
}
