package corpus

import (
	"errors"
	"fmt"
	"strings"
)

// Verify checks an existing corpus against the output invariants: non-empty
// text, no leftover placeholders, unique text and, when labels is non-nil,
// known category labels. Every violation is reported.
func Verify(records []Record, labels []string) error {
	var known map[string]bool
	if labels != nil {
		known = make(map[string]bool, len(labels))
		for _, l := range labels {
			known[l] = true
		}
	}

	var errs []error
	first := make(map[string]int, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.Query) == "" {
			errs = append(errs, fmt.Errorf("record %d: empty query", i))
		}
		if p := placeholderPattern.FindString(r.Query); p != "" {
			errs = append(errs, fmt.Errorf("record %d: unresolved placeholder %s", i, p))
		}
		if j, dup := first[r.Query]; dup {
			errs = append(errs, fmt.Errorf("record %d: duplicate of record %d", i, j))
		} else {
			first[r.Query] = i
		}
		if known != nil && !known[r.Category] {
			errs = append(errs, fmt.Errorf("record %d: unknown category %q", i, r.Category))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %d violations: %w", ErrCorpusInvalid, len(errs), errors.Join(errs...))
	}
	return nil
}
