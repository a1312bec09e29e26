package view

import "time"

// SortState is the plain, serializable form of SortCriteria.
type SortState struct {
	Field      string `json:"field" yaml:"field" diff:"field"`
	Direction  string `json:"direction" yaml:"direction" diff:"direction"`
	Comparator string `json:"comparator,omitempty" yaml:"comparator,omitempty" diff:"comparator"`
}

// FilterState is the plain, serializable form of FilterCriteria. Predicates
// are listed by name.
type FilterState struct {
	Text       string     `json:"text,omitempty" yaml:"text,omitempty" diff:"text"`
	From       *time.Time `json:"from,omitempty" yaml:"from,omitempty" diff:"from"`
	To         *time.Time `json:"to,omitempty" yaml:"to,omitempty" diff:"to"`
	Predicates []string   `json:"predicates,omitempty" yaml:"predicates,omitempty" diff:"predicates"`
}

func (c SortCriteria) State() SortState {
	return SortState{
		Field:      string(c.Field()),
		Direction:  c.direction.String(),
		Comparator: c.name,
	}
}

func (c FilterCriteria) State() FilterState {
	st := FilterState{Text: c.text}
	if c.hasRange {
		from, to := c.dateRange.start, c.dateRange.end
		st.From, st.To = &from, &to
	}
	for _, p := range c.predicates {
		st.Predicates = append(st.Predicates, p.Name)
	}
	return st
}

// Criteria rebuilds SortCriteria; custom comparators are resolved through reg.
func (s SortState) Criteria(reg *Registry) (SortCriteria, error) {
	direction, err := ParseDirection(s.Direction)
	if err != nil {
		return SortCriteria{}, err
	}
	field, err := ParseSortField(s.Field)
	if err != nil {
		return SortCriteria{}, err
	}
	if field == SortByCustom {
		return reg.CustomSort(s.Comparator, direction)
	}
	return NewSortCriteria(field, direction)
}

// Criteria rebuilds FilterCriteria. A state with only one side of the date
// window set is treated as open on the other side.
func (s FilterState) Criteria(reg *Registry) (FilterCriteria, error) {
	opts := []FilterOption{WithText(s.Text)}
	if s.From != nil || s.To != nil {
		from, to := minTime, maxTime
		if s.From != nil {
			from = *s.From
		}
		if s.To != nil {
			to = *s.To
		}
		r, err := NewDateRange(from, to)
		if err != nil {
			return FilterCriteria{}, err
		}
		opts = append(opts, WithDateRange(r))
	}
	for _, name := range s.Predicates {
		p, ok := reg.Predicate(name)
		if !ok {
			return FilterCriteria{}, UnregisteredError{Kind: "predicate", Name: name}
		}
		opts = append(opts, WithPredicates(p))
	}
	return NewFilterCriteria(opts...), nil
}

var (
	minTime = time.Unix(-62135596800, 0).UTC()
	maxTime = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)
)
