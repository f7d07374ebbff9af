package corpus

import (
	"fmt"

	"querygen/internal/logging"
	"querygen/internal/randsrc"
)

// Assemble expands every category in declaration order on one stream and
// concatenates the results: all of the first category's records precede the
// second's, and so on.
func Assemble(src *randsrc.Source, categories []*Category) ([]Record, error) {
	if err := checkLabels(categories); err != nil {
		return nil, err
	}

	var out []Record
	for _, c := range categories {
		recs, err := Expand(src, c)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	logging.CorpusDebug("assembled %d records from %d categories", len(out), len(categories))
	return out, nil
}

func checkLabels(categories []*Category) error {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if seen[c.label] {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, c.label)
		}
		seen[c.label] = true
	}
	return nil
}

// Dedup keeps the first record for each query text, preserving order.
// The category label is not part of the key: a later record with the same
// text is dropped even when its category differs.
func Dedup(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Query]; dup {
			continue
		}
		seen[r.Query] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Shuffle permutes records with one call to the stream's shuffle, so output
// position carries no information about category.
func Shuffle(src *randsrc.Source, records []Record) []Record {
	return randsrc.Shuffle(src, records)
}
