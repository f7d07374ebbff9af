package corpus

import (
	"errors"

	"querygen/internal/logging"
	"querygen/internal/randsrc"
)

// Record is one generated query and the category that produced it.
// Dedup identity is Query alone.
type Record struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// Expand produces exactly c.Target() records for the category. Duplicates are
// expected here; uniqueness is enforced later by Dedup.
//
// Per record it draws one template, then fills slots in first-occurrence
// order. A slot in a distinct group triggers one ChooseDistinct for the whole
// group; every other slot draws with ChooseOne from its bound pool.
func Expand(src *randsrc.Source, c *Category) ([]Record, error) {
	out := make([]Record, 0, c.target)
	values := make(map[string]string)

	for i := 0; i < c.target; i++ {
		tmpl, err := randsrc.ChooseOne(src, c.templates)
		if err != nil {
			return nil, &EmptyCategoryError{Category: c.label, Reason: "no templates"}
		}
		text, err := c.fill(src, tmpl, values)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Query: text, Category: c.label})
	}

	logging.ExpandDebug("expanded %s: %d records from %d templates", c.label, len(out), len(c.templates))
	return out, nil
}

func (c *Category) fill(src *randsrc.Source, tmpl Template, values map[string]string) (string, error) {
	clear(values)

	for _, slot := range tmpl.slots {
		if _, done := values[slot]; done {
			continue
		}

		if gi, ok := c.groupOf[slot]; ok {
			g := c.groups[gi]
			picks, err := randsrc.ChooseDistinct(src, c.pools[g.Pool], len(g.Slots))
			if err != nil {
				return "", c.poolError(g.Pool, err)
			}
			for j, s := range g.Slots {
				values[s] = picks[j]
			}
			continue
		}

		pool := c.poolFor(slot)
		v, err := randsrc.ChooseOne(src, c.pools[pool])
		if err != nil {
			return "", c.poolError(pool, err)
		}
		values[slot] = c.bindings[slot].Transform.Apply(v)
	}

	text, missing := tmpl.render(values)
	if missing != "" {
		return "", &MissingSlotValueError{Category: c.label, Template: tmpl.raw, Slot: missing}
	}
	if leftover := placeholderPattern.FindString(text); leftover != "" {
		return "", &MissingSlotValueError{Category: c.label, Template: tmpl.raw, Slot: leftover[1 : len(leftover)-1]}
	}
	return text, nil
}

func (c *Category) poolError(pool string, err error) error {
	var poolErr *randsrc.InsufficientPoolError
	if errors.As(err, &poolErr) {
		return &InsufficientPoolError{
			Category:  c.label,
			Pool:      pool,
			Requested: poolErr.Requested,
			Available: poolErr.Available,
		}
	}
	return err
}
