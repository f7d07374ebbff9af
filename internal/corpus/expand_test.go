package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querygen/internal/randsrc"
)

func mustCategory(t *testing.T, def Definition) *Category {
	t.Helper()
	c, err := NewCategory(def)
	require.NoError(t, err)
	return c
}

func TestExpand_TargetCount(t *testing.T) {
	c := mustCategory(t, validDefinition())

	recs, err := Expand(randsrc.New(42), c)
	require.NoError(t, err)
	assert.Len(t, recs, 10)
	for _, r := range recs {
		assert.Equal(t, "technical_operations", r.Category)
		assert.NotContains(t, r.Query, "{")
	}
}

func TestExpand_RepeatedSlot(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "echo",
		Target:    20,
		Templates: []string{"{x}-{x}"},
		Pools:     map[string][]string{"x": {"a", "b", "c"}},
	})

	recs, err := Expand(randsrc.New(1), c)
	require.NoError(t, err)
	for _, r := range recs {
		parts := strings.Split(r.Query, "-")
		require.Len(t, parts, 2)
		assert.Equal(t, parts[0], parts[1])
	}
}

func TestExpand_EscapedBraces(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "frontend",
		Target:    20,
		Templates: []string{`Why does {{ "key": 1 }} break in {lang}?`, "Render {{}} with {lang}"},
		Pools:     map[string][]string{"lang": {"JSX", "Vue"}},
	})

	recs, err := Expand(randsrc.New(5), c)
	require.NoError(t, err)
	require.Len(t, recs, 20)
	for _, r := range recs {
		assert.Contains(t, []string{
			`Why does { "key": 1 } break in JSX?`,
			`Why does { "key": 1 } break in Vue?`,
			"Render {} with JSX",
			"Render {} with Vue",
		}, r.Query)
	}
	require.NoError(t, Verify(recs, []string{"frontend"}))
}

func TestExpand_DistinctGroup(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "compare",
		Target:    200,
		Templates: []string{"{a} vs {b}"},
		Pools:     map[string][]string{"tools": {"pandas", "polars"}},
		Distinct:  []DistinctGroup{{Pool: "tools", Slots: []string{"a", "b"}}},
	})

	recs, err := Expand(randsrc.New(9), c)
	require.NoError(t, err)
	for _, r := range recs {
		assert.Contains(t, []string{"pandas vs polars", "polars vs pandas"}, r.Query)
	}
}

func TestExpand_Bindings(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "role_play_safe",
		Target:    30,
		Templates: []string{"You are a tutor. {request}"},
		Pools:     map[string][]string{"actions": {"review my code", "explain recursion"}},
		Bindings:  map[string]Binding{"request": {Pool: "actions", Transform: TransformSentence}},
	})

	recs, err := Expand(randsrc.New(3), c)
	require.NoError(t, err)
	for _, r := range recs {
		assert.Contains(t, []string{
			"You are a tutor. Review my code.",
			"You are a tutor. Explain recursion.",
		}, r.Query)
	}
}

func TestExpand_InsufficientPool(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "general_knowledge",
		Target:    5,
		Templates: []string{"Compare {a} and {b}"},
		Pools:     map[string][]string{"things": {"only"}},
		Distinct:  []DistinctGroup{{Pool: "things", Slots: []string{"a", "b"}}},
	})

	_, err := Expand(randsrc.New(42), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientPool))

	var poolErr *InsufficientPoolError
	require.True(t, errors.As(err, &poolErr))
	assert.Equal(t, "general_knowledge", poolErr.Category)
	assert.Equal(t, "things", poolErr.Pool)
	assert.Equal(t, 2, poolErr.Requested)
	assert.Equal(t, 1, poolErr.Available)
}

func TestExpand_UnusedGroupDoesNotDraw(t *testing.T) {
	// The group's pool is too small, but no template uses its slots.
	c := mustCategory(t, Definition{
		Label:     "partial",
		Target:    5,
		Templates: []string{"Hello {name}"},
		Pools:     map[string][]string{"name": {"world"}, "pair": {"x"}},
		Distinct:  []DistinctGroup{{Pool: "pair", Slots: []string{"a", "b"}}},
	})

	recs, err := Expand(randsrc.New(42), c)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestDedup_FirstOccurrenceWins(t *testing.T) {
	in := []Record{
		{Query: "a", Category: "catX"},
		{Query: "b", Category: "catY"},
		{Query: "a", Category: "catZ"},
	}
	want := []Record{
		{Query: "a", Category: "catX"},
		{Query: "b", Category: "catY"},
	}
	if diff := cmp.Diff(want, Dedup(in)); diff != "" {
		t.Errorf("Dedup() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_DeclarationOrder(t *testing.T) {
	first := mustCategory(t, Definition{Label: "first", Target: 3, Templates: []string{"one {x}"}, Pools: map[string][]string{"x": {"a"}}})
	second := mustCategory(t, Definition{Label: "second", Target: 2, Templates: []string{"two {x}"}, Pools: map[string][]string{"x": {"b"}}})

	recs, err := Assemble(randsrc.New(42), []*Category{first, second})
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, r := range recs {
		if i < 3 {
			assert.Equal(t, "first", r.Category)
		} else {
			assert.Equal(t, "second", r.Category)
		}
	}
}

func TestAssemble_DuplicateLabel(t *testing.T) {
	c := mustCategory(t, validDefinition())
	_, err := Assemble(randsrc.New(42), []*Category{c, c})
	assert.True(t, errors.Is(err, ErrDuplicateCategory))
}

func TestShuffle_IsPermutation(t *testing.T) {
	in := make([]Record, 100)
	for i := range in {
		in[i] = Record{Query: fmt.Sprintf("q%03d", i), Category: "c"}
	}
	orig := append([]Record(nil), in...)

	out := Shuffle(randsrc.New(42), in)
	assert.Equal(t, orig, in, "input must not be mutated")
	assert.NotEqual(t, orig, out)

	sorted := append([]Record(nil), out...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Query < sorted[j].Query })
	assert.Equal(t, orig, sorted)
}

func TestGenerate_EndToEnd(t *testing.T) {
	c := mustCategory(t, Definition{
		Label:     "technical_operations",
		Target:    50,
		Templates: []string{"How do I {verb} it?"},
		Pools:     map[string][]string{"verb": {"run", "stop"}},
	})

	res, err := Generate(randsrc.New(42), []*Category{c})
	require.NoError(t, err)

	var got []string
	for _, r := range res.Records {
		assert.Equal(t, "technical_operations", r.Category)
		got = append(got, r.Query)
	}
	assert.ElementsMatch(t, []string{"How do I run it?", "How do I stop it?"}, got)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 2, res.Summary.Count("technical_operations"))

	require.Len(t, res.Stats, 1)
	assert.Equal(t, CategoryStats{
		Category:  "technical_operations",
		Target:    50,
		Generated: 50,
		Surviving: 2,
		Seed:      42,
	}, res.Stats[0])
}

func TestGenerate_Shrinkage(t *testing.T) {
	values := make([]string, 10)
	for i := range values {
		values[i] = fmt.Sprintf("v%d", i)
	}
	c := mustCategory(t, Definition{
		Label:     "small",
		Target:    100,
		Templates: []string{"Query {x}"},
		Pools:     map[string][]string{"x": values},
	})
	assert.Equal(t, uint64(10), c.Space())

	res, err := Generate(randsrc.New(42), []*Category{c})
	require.NoError(t, err)
	assert.Len(t, res.Records, 10)
}

func testCategories(t *testing.T) []*Category {
	t.Helper()
	return []*Category{
		mustCategory(t, validDefinition()),
		mustCategory(t, Definition{
			Label:     "data_science",
			Target:    40,
			Templates: []string{"Should I use {a} or {b} for {task}?", "How do I tune {tool}?"},
			Pools: map[string][]string{
				"tools": {"pandas", "polars", "spark", "dask"},
				"task":  {"ETL", "feature engineering", "reporting"},
			},
			Bindings: map[string]Binding{"tool": {Pool: "tools"}},
			Distinct: []DistinctGroup{{Pool: "tools", Slots: []string{"a", "b"}}},
		}),
		mustCategory(t, Definition{
			Label:     "overlap",
			Target:    10,
			Templates: []string{"How do I {verb} {target}?"},
			Pools: map[string][]string{
				"verb":   {"kill"},
				"target": {"nginx"},
			},
		}),
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	cats := testCategories(t)

	a, err := Generate(randsrc.New(42), cats)
	require.NoError(t, err)
	b, err := Generate(randsrc.New(42), cats)
	require.NoError(t, err)
	c, err := Generate(randsrc.New(7), cats)
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
	assert.NotEqual(t, a.Records, c.Records)
}

func TestGenerate_Invariants(t *testing.T) {
	cats := testCategories(t)
	res, err := Generate(randsrc.New(42), cats)
	require.NoError(t, err)

	labels := []string{"technical_operations", "data_science", "overlap"}
	require.NoError(t, Verify(res.Records, labels))

	sum := 0
	for _, cc := range res.Summary.Counts {
		sum += cc.Count
	}
	assert.Equal(t, len(res.Records), sum)
	assert.Equal(t, res.Summary.Total, sum)
	for _, s := range res.Stats {
		assert.LessOrEqual(t, s.Surviving, s.Target)
	}
}

func TestGenerate_Parallel(t *testing.T) {
	cats := testCategories(t)

	a, err := Generate(randsrc.New(42), cats, WithParallel(4))
	require.NoError(t, err)
	b, err := Generate(randsrc.New(42), cats, WithParallel(2))
	require.NoError(t, err)

	assert.True(t, a.Parallel)
	assert.Equal(t, a.Records, b.Records, "worker count must not change output")
	require.NoError(t, Verify(a.Records, nil))

	for i, s := range a.Stats {
		assert.Equal(t, randsrc.DeriveSeed(42, uint64(i)), s.Seed)
	}
}

func TestGenerate_ParallelError(t *testing.T) {
	bad := mustCategory(t, Definition{
		Label:     "bad",
		Target:    5,
		Templates: []string{"{a} {b}"},
		Pools:     map[string][]string{"p": {"x"}},
		Distinct:  []DistinctGroup{{Pool: "p", Slots: []string{"a", "b"}}},
	})
	cats := append(testCategories(t), bad)

	res, err := Generate(randsrc.New(42), cats, WithParallel(3))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInsufficientPool))

	_, err = Generate(randsrc.New(42), []*Category{cats[0], cats[0]}, WithParallel(2))
	assert.True(t, errors.Is(err, ErrDuplicateCategory))
}
