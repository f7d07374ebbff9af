// Package catalog loads category definitions from YAML documents and turns
// them into validated corpus categories.
package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"querygen/internal/corpus"
	"querygen/internal/logging"
)

// DefaultName is the display name of the embedded catalog.
const DefaultName = "defaults/benign.yaml"

//go:embed defaults/benign.yaml
var defaults embed.FS

// Document is the on-disk catalog shape.
type Document struct {
	Categories []CategorySpec `json:"categories" yaml:"categories"`
}

// CategorySpec is one category as written in a catalog file.
type CategorySpec struct {
	Label     string              `json:"label" yaml:"label"`
	Target    int                 `json:"target" yaml:"target"`
	Templates []string            `json:"templates" yaml:"templates"`
	Pools     map[string][]string `json:"pools" yaml:"pools"`
	Slots     map[string]SlotSpec `json:"slots,omitempty" yaml:"slots,omitempty"`
	Distinct  []DistinctSpec      `json:"distinct,omitempty" yaml:"distinct,omitempty"`
}

// SlotSpec binds a slot to a pool and an optional transform.
type SlotSpec struct {
	Pool      string `json:"pool,omitempty" yaml:"pool,omitempty"`
	Transform string `json:"transform,omitempty" yaml:"transform,omitempty"`
}

// DistinctSpec lists slots that must receive different values from one pool.
type DistinctSpec struct {
	Pool  string   `json:"pool" yaml:"pool"`
	Slots []string `json:"slots" yaml:"slots"`
}

// Definition converts the catalog entry into the engine's plain definition.
func (s CategorySpec) Definition() corpus.Definition {
	def := corpus.Definition{
		Label:     s.Label,
		Target:    s.Target,
		Templates: s.Templates,
		Pools:     s.Pools,
	}
	if len(s.Slots) > 0 {
		def.Bindings = make(map[string]corpus.Binding, len(s.Slots))
		for slot, b := range s.Slots {
			def.Bindings[slot] = corpus.Binding{Pool: b.Pool, Transform: corpus.Transform(b.Transform)}
		}
	}
	for _, d := range s.Distinct {
		def.Distinct = append(def.Distinct, corpus.DistinctGroup{Pool: d.Pool, Slots: d.Slots})
	}
	return def
}

// Catalog is a validated set of categories in declaration order.
type Catalog struct {
	Categories []*corpus.Category
	// Sources names the documents the categories came from, in load order.
	Sources []string
	// Digest is the hex SHA-256 over the raw bytes of every source.
	Digest string
}

// Labels returns the category labels in declaration order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		out[i] = cat.Label()
	}
	return out
}

// Parse decodes and validates a single catalog document. name is used in
// error messages only.
func Parse(data []byte, name string) (*Catalog, error) {
	raw, v, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := validate(v); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrInvalidCatalog, err)
	}

	cats := make([]*corpus.Category, 0, len(doc.Categories))
	seen := make(map[string]bool, len(doc.Categories))
	for _, spec := range doc.Categories {
		cat, err := corpus.NewCategory(spec.Definition())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if seen[cat.Label()] {
			return nil, fmt.Errorf("%s: %w: %q", name, corpus.ErrDuplicateCategory, cat.Label())
		}
		seen[cat.Label()] = true
		cats = append(cats, cat)
	}

	sum := sha256.Sum256(data)
	logging.CatalogDebug("parsed %s: %d categories", name, len(cats))
	return &Catalog{Categories: cats, Sources: []string{name}, Digest: hex.EncodeToString(sum[:])}, nil
}

// Load reads catalog files in order and concatenates their categories.
// A label declared in two files is an error.
func Load(paths ...string) (*Catalog, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no catalog files given", ErrInvalidCatalog)
	}

	timer := logging.StartTimer(logging.CategoryCatalog, "load")
	defer timer.Stop()

	out := &Catalog{}
	h := sha256.New()
	owner := make(map[string]string)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		c, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		for _, cat := range c.Categories {
			if prev, dup := owner[cat.Label()]; dup {
				return nil, fmt.Errorf("%s: %w: %q already declared in %s", path, corpus.ErrDuplicateCategory, cat.Label(), prev)
			}
			owner[cat.Label()] = path
		}
		h.Write(data)
		out.Categories = append(out.Categories, c.Categories...)
		out.Sources = append(out.Sources, path)
	}
	out.Digest = hex.EncodeToString(h.Sum(nil))

	logging.Catalog("loaded %d categories from %d files", len(out.Categories), len(paths))
	return out, nil
}

// Default parses the embedded benign catalog.
func Default() (*Catalog, error) {
	data, err := defaults.ReadFile(DefaultName)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}
	return Parse(data, DefaultName)
}

// DefaultBytes returns the raw embedded catalog, for exporting and editing.
func DefaultBytes() []byte {
	data, _ := defaults.ReadFile(DefaultName)
	return data
}

// Resolve loads paths, or the embedded catalog when paths is empty.
func Resolve(paths []string) (*Catalog, error) {
	if len(paths) == 0 {
		return Default()
	}
	return Load(paths...)
}

// Description summarizes one category for listings.
type Description struct {
	Label     string
	Target    int
	Templates int
	Pools     int
	Values    int // pool values summed over all pools
	// Space is an upper bound on distinct query texts; see corpus.Category.Space.
	Space uint64
}

// Describe reports the shape of a category.
func Describe(c *corpus.Category) Description {
	d := Description{
		Label:     c.Label(),
		Target:    c.Target(),
		Templates: len(c.Templates()),
		Space:     c.Space(),
	}
	for _, name := range c.PoolNames() {
		d.Pools++
		d.Values += len(c.Pool(name))
	}
	return d
}
