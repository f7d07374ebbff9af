package corpus

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"
)

// Binding points a slot at a pool other than its own name and optionally
// transforms the drawn value.
type Binding struct {
	Pool      string
	Transform Transform
}

// DistinctGroup fills several slots from one pool with a single draw without
// replacement, in the order the slots are listed.
type DistinctGroup struct {
	Pool  string
	Slots []string
}

// Definition is the plain data a Category is built from.
type Definition struct {
	Label     string
	Target    int
	Templates []string
	Pools     map[string][]string
	Bindings  map[string]Binding
	Distinct  []DistinctGroup
}

// Category is a validated, immutable Definition.
type Category struct {
	label     string
	target    int
	templates []Template
	pools     map[string][]string
	bindings  map[string]Binding
	groups    []DistinctGroup
	groupOf   map[string]int
}

// NewCategory validates def and returns the Category built from it.
// Every structural problem is reported here, before any expansion runs.
func NewCategory(def Definition) (*Category, error) {
	label := strings.TrimSpace(def.Label)
	if label == "" {
		return nil, &EmptyCategoryError{Category: def.Label, Reason: "missing label"}
	}
	if len(def.Templates) == 0 {
		return nil, &EmptyCategoryError{Category: label, Reason: "no templates"}
	}
	if def.Target <= 0 {
		return nil, &EmptyCategoryError{Category: label, Reason: fmt.Sprintf("target count must be positive, got %d", def.Target)}
	}

	c := &Category{
		label:    label,
		target:   def.Target,
		pools:    make(map[string][]string, len(def.Pools)),
		bindings: make(map[string]Binding, len(def.Bindings)),
		groupOf:  make(map[string]int),
	}
	for name, values := range def.Pools {
		c.pools[name] = append([]string(nil), values...)
	}

	for slot, b := range def.Bindings {
		if !b.Transform.Valid() {
			return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("slot %q: unknown transform %q", slot, b.Transform)}
		}
		if b.Pool == "" {
			b.Pool = slot
		}
		c.bindings[slot] = b
	}

	for gi, g := range def.Distinct {
		if len(g.Slots) == 0 {
			return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("distinct group %d has no slots", gi)}
		}
		if g.Pool == "" {
			return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("distinct group %d has no pool", gi)}
		}
		for _, slot := range g.Slots {
			if _, dup := c.groupOf[slot]; dup {
				return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("slot %q appears in more than one distinct group", slot)}
			}
			if _, bound := c.bindings[slot]; bound {
				return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("slot %q is both bound and in a distinct group", slot)}
			}
			c.groupOf[slot] = gi
		}
		c.groups = append(c.groups, DistinctGroup{Pool: g.Pool, Slots: append([]string(nil), g.Slots...)})
	}

	for _, raw := range def.Templates {
		if strings.TrimSpace(raw) == "" {
			return nil, &EmptyCategoryError{Category: label, Reason: "blank template"}
		}
		tmpl, err := ParseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", label, err)
		}
		for _, slot := range tmpl.slots {
			pool := c.poolFor(slot)
			values, ok := c.pools[pool]
			if !ok {
				return nil, &MissingSlotValueError{Category: label, Template: raw, Slot: slot}
			}
			if len(values) == 0 {
				return nil, &EmptyCategoryError{Category: label, Reason: fmt.Sprintf("pool %q is empty", pool)}
			}
			for _, v := range values {
				if strings.TrimSpace(v) == "" {
					return nil, &EmptyCategoryError{Category: label, Reason: fmt.Sprintf("pool %q contains a blank value", pool)}
				}
				if ph := placeholderPattern.FindString(v); ph != "" {
					return nil, &CategoryError{Category: label, Reason: fmt.Sprintf("pool %q value %q contains placeholder syntax %s", pool, v, ph)}
				}
			}
		}
		c.templates = append(c.templates, tmpl)
	}

	return c, nil
}

// poolFor resolves the pool a slot draws from.
func (c *Category) poolFor(slot string) string {
	if gi, ok := c.groupOf[slot]; ok {
		return c.groups[gi].Pool
	}
	if b, ok := c.bindings[slot]; ok {
		return b.Pool
	}
	return slot
}

// Label returns the category identifier.
func (c *Category) Label() string { return c.label }

// Target returns how many records one expansion produces.
func (c *Category) Target() int { return c.target }

// Templates returns the parsed templates in declaration order.
func (c *Category) Templates() []Template {
	return append([]Template(nil), c.templates...)
}

// PoolNames returns the sorted pool names.
func (c *Category) PoolNames() []string {
	names := make([]string, 0, len(c.pools))
	for name := range c.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pool returns a copy of the named pool.
func (c *Category) Pool(name string) []string {
	return append([]string(nil), c.pools[name]...)
}

// Space estimates the number of distinct query texts the category can
// produce: the sum over templates of the product of per-slot choices. Values
// that collide after substitution are counted separately, so this is an
// upper bound. It saturates at math.MaxUint64.
func (c *Category) Space() uint64 {
	var total uint64
	for _, tmpl := range c.templates {
		n := uint64(1)
		drawn := make(map[int]bool)
		for _, slot := range tmpl.slots {
			if gi, ok := c.groupOf[slot]; ok {
				if drawn[gi] {
					continue
				}
				drawn[gi] = true
				g := c.groups[gi]
				n = mulSat(n, permutations(len(c.pools[g.Pool]), len(g.Slots)))
				continue
			}
			n = mulSat(n, uint64(len(c.pools[c.poolFor(slot)])))
		}
		sum, carry := bits.Add64(total, n, 0)
		if carry != 0 {
			return math.MaxUint64
		}
		total = sum
	}
	return total
}

func permutations(n, k int) uint64 {
	if k > n {
		return 0
	}
	p := uint64(1)
	for i := 0; i < k; i++ {
		p = mulSat(p, uint64(n-i))
	}
	return p
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
