package corpus

import (
	"errors"
	"fmt"

	"querygen/internal/randsrc"
)

var (
	// ErrMissingSlotValue marks a slot with no value pool, or placeholder syntax
	// left in a generated query.
	ErrMissingSlotValue = errors.New("missing slot value")

	// ErrInsufficientPool marks a distinct draw larger than its pool.
	ErrInsufficientPool = randsrc.ErrInsufficientPool

	// ErrEmptyCategory marks a category with no templates, a non-positive
	// target, or an empty pool referenced by a template.
	ErrEmptyCategory = errors.New("empty category")

	// ErrInvalidCategory marks any other structural problem in a definition.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidTemplate marks a template string that cannot be parsed.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrDuplicateCategory marks two categories declared with the same label.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrCorpusInvalid marks a corpus that breaks an output invariant.
	ErrCorpusInvalid = errors.New("corpus invalid")
)

// MissingSlotValueError reports a slot that could not be resolved.
type MissingSlotValueError struct {
	Category string
	Template string
	Slot     string
}

func (e *MissingSlotValueError) Error() string {
	return fmt.Sprintf("category %q: template %q: no value for slot {%s}", e.Category, e.Template, e.Slot)
}

func (e *MissingSlotValueError) Is(target error) bool { return target == ErrMissingSlotValue }

// InsufficientPoolError reports a distinct draw that the pool cannot satisfy.
type InsufficientPoolError struct {
	Category  string
	Pool      string
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("category %q: pool %q: requested %d distinct values, pool has %d",
		e.Category, e.Pool, e.Requested, e.Available)
}

func (e *InsufficientPoolError) Is(target error) bool { return target == ErrInsufficientPool }

// EmptyCategoryError reports a category that cannot produce any record.
type EmptyCategoryError struct {
	Category string
	Reason   string
}

func (e *EmptyCategoryError) Error() string {
	return fmt.Sprintf("category %q: %s", e.Category, e.Reason)
}

func (e *EmptyCategoryError) Is(target error) bool { return target == ErrEmptyCategory }

// CategoryError reports a structural problem that is not an empty pool or
// a missing slot.
type CategoryError struct {
	Category string
	Reason   string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %q: %s", e.Category, e.Reason)
}

func (e *CategoryError) Is(target error) bool { return target == ErrInvalidCategory }

// TemplateError reports a malformed template string.
type TemplateError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: offset %d: %s", e.Template, e.Offset, e.Reason)
}

func (e *TemplateError) Is(target error) bool { return target == ErrInvalidTemplate }
