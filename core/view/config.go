package view

import "time"

// Configuration is the persisted unit: the last used criteria pair and
// whether the sort should be remembered across sessions.
type Configuration struct {
	Sort             SortCriteria
	Filter           FilterCriteria
	RememberLastSort bool
	CreatedAt        time.Time
}

// NewConfiguration stamps the snapshot with clock.
func NewConfiguration(clock Clock, sort SortCriteria, filter FilterCriteria, rememberLastSort bool) Configuration {
	return Configuration{
		Sort:             sort,
		Filter:           filter,
		RememberLastSort: rememberLastSort,
		CreatedAt:        clockOrSystem(clock).Now(),
	}
}

// DefaultConfiguration orders by title ascending, filters nothing and does not
// remember the sort. CreatedAt is the zero time.
func DefaultConfiguration() Configuration {
	return Configuration{
		Sort:   SortCriteria{field: SortByTitle, direction: Ascending},
		Filter: NewFilterCriteria(),
	}
}

func (c Configuration) Equal(o Configuration) bool {
	return c.Sort.Equal(o.Sort) &&
		c.Filter.Equal(o.Filter) &&
		c.RememberLastSort == o.RememberLastSort &&
		c.CreatedAt.Equal(o.CreatedAt)
}

// IsDefault reports whether c carries the default criteria, ignoring CreatedAt.
func (c Configuration) IsDefault() bool {
	d := DefaultConfiguration()
	return c.Sort.Equal(d.Sort) && c.Filter.Equal(d.Filter) && c.RememberLastSort == d.RememberLastSort
}
