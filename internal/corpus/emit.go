package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"querygen/internal/logging"
)

// CategoryCount is one line of the summary.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary is the per-category breakdown of a final corpus, sorted by label.
type Summary struct {
	Total  int             `json:"total"`
	Counts []CategoryCount `json:"counts"`
}

// Summarize counts records per category.
func Summarize(records []Record) Summary {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Category]++
	}
	s := Summary{Total: len(records), Counts: make([]CategoryCount, 0, len(counts))}
	for label, n := range counts {
		s.Counts = append(s.Counts, CategoryCount{Category: label, Count: n})
	}
	sort.Slice(s.Counts, func(i, j int) bool { return s.Counts[i].Category < s.Counts[j].Category })
	return s
}

// Count returns the surviving count for one category.
func (s Summary) Count(category string) int {
	for _, c := range s.Counts {
		if c.Category == category {
			return c.Count
		}
	}
	return 0
}

// WriteTo writes the human-readable summary: a total line, then one
// "label: count" line per category.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n--- Generated %d unique entries ---\n", s.Total)
	for _, c := range s.Counts {
		fmt.Fprintf(&sb, "  %s: %d\n", c.Category, c.Count)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Emitter writes the corpus stream and, separately, its summary.
type Emitter struct {
	out     io.Writer
	summary io.Writer
}

// NewEmitter returns an Emitter writing records to out and the summary to
// summary. A nil summary writer suppresses the report.
func NewEmitter(out, summary io.Writer) *Emitter {
	return &Emitter{out: out, summary: summary}
}

// Emit writes one JSON object per record, in the given order, then the
// summary. The summary is not written if any record fails to write.
func (e *Emitter) Emit(records []Record) (Summary, error) {
	w := bufio.NewWriter(e.out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return Summary{}, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return Summary{}, fmt.Errorf("failed to flush corpus: %w", err)
	}
	logging.EmitDebug("wrote %d records", len(records))

	s := Summarize(records)
	if e.summary != nil {
		if _, err := s.WriteTo(e.summary); err != nil {
			return s, fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return s, nil
}

// ReadRecords parses a JSON-lines corpus. Blank lines are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []Record
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var extra json.RawMessage
		if err := dec.Decode(&extra); err != io.EOF {
			return nil, fmt.Errorf("line %d: trailing data after record", line)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return out, nil
}
