package view

import (
	"fmt"
	"strings"
)

// Direction is the order in which a sort is applied.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Toggle flips the direction. Toggle(Toggle(d)) == d for both directions.
func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending", case
// insensitive. An empty string is Ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}
