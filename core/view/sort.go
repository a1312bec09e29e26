package view

import (
	"fmt"
	"slices"
	"strings"
)

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "created_at"
	SortByCustom    SortField = "custom"
)

// ParseSortField maps a user supplied field name to a SortField. An empty
// string selects SortByTitle.
func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByTitle:
		return SortByTitle, nil
	case SortByCreatedAt, "created", "date":
		return SortByCreatedAt, nil
	case SortByCustom:
		return SortByCustom, nil
	}
	return SortByTitle, fmt.Errorf("%w: %q", ErrUnknownSortField, s)
}

// Comparator is a total ordering over records: negative when a sorts before
// b, zero when they are equal and positive otherwise.
type Comparator func(a, b Record) int

// SortCriteria describes how a sequence of records is ordered. The zero value
// orders by title, ascending.
type SortCriteria struct {
	field      SortField
	direction  Direction
	name       string
	comparator Comparator
}

// NewSortCriteria builds criteria for one of the built-in fields. Custom
// orderings are built with CustomSort.
func NewSortCriteria(field SortField, direction Direction) (SortCriteria, error) {
	switch field {
	case "", SortByTitle:
		return SortCriteria{field: SortByTitle, direction: direction}, nil
	case SortByCreatedAt:
		return SortCriteria{field: SortByCreatedAt, direction: direction}, nil
	case SortByCustom:
		return SortCriteria{}, fmt.Errorf("%w: custom sort needs a comparator", ErrNilComparator)
	}
	return SortCriteria{}, fmt.Errorf("%w: %q", ErrUnknownSortField, field)
}

// CustomSort builds criteria around an externally supplied comparator. The
// name identifies the comparator when the criteria is persisted.
func CustomSort(name string, comparator Comparator, direction Direction) (SortCriteria, error) {
	if comparator == nil {
		return SortCriteria{}, ErrNilComparator
	}
	if strings.TrimSpace(name) == "" {
		return SortCriteria{}, ErrUnnamedComparator
	}
	return SortCriteria{
		field:      SortByCustom,
		direction:  direction,
		name:       name,
		comparator: comparator,
	}, nil
}

func (c SortCriteria) Field() SortField {
	if c.field == "" {
		return SortByTitle
	}
	return c.field
}

func (c SortCriteria) Direction() Direction { return c.direction }

// ComparatorName is empty unless Field is SortByCustom.
func (c SortCriteria) ComparatorName() string { return c.name }

// WithDirection returns a copy of c using direction d.
func (c SortCriteria) WithDirection(d Direction) SortCriteria {
	c.direction = d
	return c
}

// Toggled returns a copy of c with the direction flipped.
func (c SortCriteria) Toggled() SortCriteria {
	return c.WithDirection(c.direction.Toggle())
}

// Equal reports whether both criteria order records the same way. Custom
// comparators are compared by name.
func (c SortCriteria) Equal(o SortCriteria) bool {
	return c.Field() == o.Field() && c.direction == o.direction && c.name == o.name
}

func (c SortCriteria) String() string {
	if c.Field() == SortByCustom {
		return fmt.Sprintf("%s(%s) %s", c.field, c.name, c.direction)
	}
	return fmt.Sprintf("%s %s", c.Field(), c.direction)
}

// Compare returns the comparator the criteria applies, direction included.
// Descending negates the base comparison so equal records keep their input
// order. Nil records sort after every other record in both directions.
func (c SortCriteria) Compare() Comparator {
	var base Comparator
	switch c.Field() {
	case SortByCreatedAt:
		base = compareCreatedAt
	case SortByCustom:
		base = c.comparator
	default:
		base = compareTitle
	}
	if base == nil {
		base = compareTitle
	}
	sign := 1
	if c.direction == Descending {
		sign = -1
	}
	return func(a, b Record) int {
		aAbsent, bAbsent := absent(a), absent(b)
		switch {
		case aAbsent && bAbsent:
			return 0
		case aAbsent:
			return 1
		case bAbsent:
			return -1
		}
		return sign * base(a, b)
	}
}

// Order returns a new slice holding the records of rs ordered by c. The sort
// is stable and rs is left untouched. Nil records end up last.
func Order[R Record](c SortCriteria, rs []R) []R {
	out := make([]R, len(rs))
	copy(out, rs)
	compare := c.Compare()
	slices.SortStableFunc(out, func(a, b R) int {
		return compare(a, b)
	})
	return out
}

// Orderer curries Order over c.
func Orderer[R Record](c SortCriteria) func([]R) []R {
	return func(rs []R) []R {
		return Order(c, rs)
	}
}

func compareTitle(a, b Record) int {
	return strings.Compare(strings.ToLower(a.GetTitle()), strings.ToLower(b.GetTitle()))
}

func compareCreatedAt(a, b Record) int {
	return a.GetCreatedAt().Compare(b.GetCreatedAt())
}
