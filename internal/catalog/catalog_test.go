package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querygen/internal/corpus"
	"querygen/internal/randsrc"
)

var defaultLabels = []string{
	"technical_operations",
	"override_contexts",
	"security_education",
	"domain_specific",
	"code_snippets",
	"role_play_safe",
	"multi_language",
	"model_questions",
	"customer_support",
	"academic_research",
	"creative_writing",
	"general_knowledge",
	"data_science",
	"devops_cloud",
	"ui_ux_design",
	"career_professional",
	"database_queries",
	"api_development",
	"testing_qa",
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, defaultLabels, c.Labels())
	assert.Equal(t, []string{DefaultName}, c.Sources)
	assert.Len(t, c.Digest, 64)

	total := 0
	for _, cat := range c.Categories {
		total += cat.Target()
	}
	assert.Equal(t, 5030, total)

	again, err := Default()
	require.NoError(t, err)
	assert.Equal(t, c.Digest, again.Digest)
}

func TestDefault_GeneratesValidCorpus(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	res, err := corpus.Generate(randsrc.New(42), c.Categories)
	require.NoError(t, err)
	require.NoError(t, corpus.Verify(res.Records, c.Labels()))

	assert.Greater(t, len(res.Records), 3000)
	assert.LessOrEqual(t, len(res.Records), 5030)
	for _, label := range c.Labels() {
		assert.Positive(t, res.Summary.Count(label), label)
	}
}

func TestParse(t *testing.T) {
	doc := `
categories:
  - label: role_play_safe
    target: 5
    templates:
      - "As a tutor: {request}"
    pools:
      actions: ["explain recursion"]
    slots:
      request: {pool: actions, transform: sentence}
  - label: compare
    target: 3
    templates: ["{a} or {b}?"]
    pools:
      tools: [Jest, Vitest]
    distinct:
      - pool: tools
        slots: [a, b]
`
	c, err := Parse([]byte(doc), "inline.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"role_play_safe", "compare"}, c.Labels())

	res, err := corpus.Generate(randsrc.New(1), c.Categories)
	require.NoError(t, err)
	for _, r := range res.Records {
		if r.Category == "role_play_safe" {
			assert.Equal(t, "As a tutor: Explain recursion.", r.Query)
		}
	}
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"not yaml", "categories: [\n"},
		{"missing categories", "other: 1\n"},
		{"unknown field", "categories:\n  - label: a\n    target: 1\n    templates: [x]\n    pools: {}\n    weight: 3\n"},
		{"target not integer", "categories:\n  - label: a\n    target: many\n    templates: [x]\n    pools: {}\n"},
		{"bad pool name", "categories:\n  - label: a\n    target: 1\n    templates: [x]\n    pools: {\"bad-name\": [v]}\n"},
		{"pool values not strings", "categories:\n  - label: a\n    target: 1\n    templates: [x]\n    pools: {p: [{k: v}]}\n"},
		{"unknown transform", "categories:\n  - label: a\n    target: 1\n    templates: [\"{s}\"]\n    pools: {p: [v]}\n    slots: {s: {pool: p, transform: shout}}\n"},
		{"group without slots", "categories:\n  - label: a\n    target: 1\n    templates: [x]\n    pools: {p: [v]}\n    distinct: [{pool: p, slots: []}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "got %v", err)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestParse_CategoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "zero target",
			doc:     "categories:\n  - label: a\n    target: 0\n    templates: [x]\n    pools: {}\n",
			wantErr: corpus.ErrEmptyCategory,
		},
		{
			name:    "no templates",
			doc:     "categories:\n  - label: a\n    target: 1\n    templates: []\n    pools: {}\n",
			wantErr: corpus.ErrEmptyCategory,
		},
		{
			name:    "missing pool",
			doc:     "categories:\n  - label: a\n    target: 1\n    templates: [\"{who}\"]\n    pools: {}\n",
			wantErr: corpus.ErrMissingSlotValue,
		},
		{
			name: "duplicate label",
			doc: "categories:\n" +
				"  - {label: a, target: 1, templates: [x], pools: {}}\n" +
				"  - {label: a, target: 1, templates: [y], pools: {}}\n",
			wantErr: corpus.ErrDuplicateCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "cat.yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, errors.Is(err, ErrInvalidCatalog))
		})
	}
}

func writeCatalog(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	a := writeCatalog(t, dir, "a.yaml", "categories:\n  - {label: first, target: 2, templates: [\"hi {n}\"], pools: {n: [x, y]}}\n")
	b := writeCatalog(t, dir, "b.yaml", "categories:\n  - {label: second, target: 2, templates: [\"bye {n}\"], pools: {n: [x, y]}}\n")

	c, err := Load(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, c.Labels())
	assert.Equal(t, []string{a, b}, c.Sources)

	swapped, err := Load(b, a)
	require.NoError(t, err)
	assert.NotEqual(t, c.Digest, swapped.Digest)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeCatalog(t, dir, "a.yaml", "categories:\n  - {label: same, target: 1, templates: [x], pools: {}}\n")
	b := writeCatalog(t, dir, "b.yaml", "categories:\n  - {label: same, target: 1, templates: [y], pools: {}}\n")

	_, err := Load(a, b)
	assert.True(t, errors.Is(err, corpus.ErrDuplicateCategory))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load()
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
}

func TestResolve(t *testing.T) {
	c, err := Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, c.Categories, len(defaultLabels))
	assert.NotEmpty(t, DefaultBytes())
}

func TestDescribe(t *testing.T) {
	c, err := Parse([]byte("categories:\n  - {label: a, target: 4, templates: [\"{x} {y}\", \"{x}\"], pools: {x: [a, b], y: [c, d, e]}}\n"), "d.yaml")
	require.NoError(t, err)

	d := Describe(c.Categories[0])
	assert.Equal(t, Description{Label: "a", Target: 4, Templates: 2, Pools: 2, Values: 5, Space: 6 + 2}, d)
}
