package view

import (
	"strings"
	"time"
)

// DateRange is an inclusive window of creation instants.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange fails with InvalidRangeError when start is after end. A range
// where start equals end matches exactly that instant.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, InvalidRangeError{Start: start, End: end}
	}
	return DateRange{start: start, end: end}, nil
}

func (r DateRange) Start() time.Time { return r.start }
func (r DateRange) End() time.Time   { return r.end }

// Contains reports whether t lies within [start, end].
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && !t.After(r.end)
}

func (r DateRange) Equal(o DateRange) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

// Predicate is an extra filter over records. Name identifies the predicate
// when the criteria is persisted.
type Predicate struct {
	Name  string
	Match func(Record) bool
}

// FilterCriteria describes which records a view includes. The text fragment,
// the date range and every predicate are combined with AND; an absent part
// accepts everything.
type FilterCriteria struct {
	text       string
	dateRange  DateRange
	hasRange   bool
	predicates []Predicate
}

type FilterOption func(*FilterCriteria)

// WithText keeps records whose title or text contains s, ignoring case.
func WithText(s string) FilterOption {
	return func(c *FilterCriteria) {
		c.text = s
	}
}

func WithDateRange(r DateRange) FilterOption {
	return func(c *FilterCriteria) {
		c.dateRange = r
		c.hasRange = true
	}
}

// WithPredicates appends extra predicates. Predicates without a Match func
// are dropped.
func WithPredicates(ps ...Predicate) FilterOption {
	return func(c *FilterCriteria) {
		for _, p := range ps {
			if p.Match == nil {
				continue
			}
			c.predicates = append(c.predicates, p)
		}
	}
}

func NewFilterCriteria(opts ...FilterOption) FilterCriteria {
	var c FilterCriteria
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c FilterCriteria) Text() string { return c.text }

func (c FilterCriteria) DateRange() (DateRange, bool) { return c.dateRange, c.hasRange }

// Predicates returns a copy of the extra predicates. It is never nil.
func (c FilterCriteria) Predicates() []Predicate {
	out := make([]Predicate, len(c.predicates))
	copy(out, c.predicates)
	return out
}

// With returns a copy of c with opts applied on top.
func (c FilterCriteria) With(opts ...FilterOption) FilterCriteria {
	c.predicates = c.Predicates()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithoutDateRange returns a copy of c that does not filter by date.
func (c FilterCriteria) WithoutDateRange() FilterCriteria {
	c.predicates = c.Predicates()
	c.dateRange = DateRange{}
	c.hasRange = false
	return c
}

// IsEmpty reports whether c accepts every record.
func (c FilterCriteria) IsEmpty() bool {
	return c.text == "" && !c.hasRange && len(c.predicates) == 0
}

// Equal compares text, range and predicate names in order.
func (c FilterCriteria) Equal(o FilterCriteria) bool {
	if c.text != o.text || c.hasRange != o.hasRange {
		return false
	}
	if c.hasRange && !c.dateRange.Equal(o.dateRange) {
		return false
	}
	if len(c.predicates) != len(o.predicates) {
		return false
	}
	for i := range c.predicates {
		if c.predicates[i].Name != o.predicates[i].Name {
			return false
		}
	}
	return true
}

// Matcher turns c into a predicate. A nil record, or a nil pointer record,
// never matches.
func Matcher(c FilterCriteria) func(Record) bool {
	needle := strings.ToLower(c.text)
	predicates := c.Predicates()
	dateRange, hasRange := c.DateRange()

	return func(r Record) bool {
		if absent(r) {
			return false
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.GetTitle()), needle) &&
			!strings.Contains(strings.ToLower(r.GetText()), needle) {
			return false
		}
		if hasRange && !dateRange.Contains(r.GetCreatedAt()) {
			return false
		}
		for _, p := range predicates {
			if !p.Match(r) {
				return false
			}
		}
		return true
	}
}

// FilterSequence returns the records of rs accepted by c, in input order.
func FilterSequence[R Record](c FilterCriteria, rs []R) []R {
	match := Matcher(c)
	out := make([]R, 0, len(rs))
	for _, r := range rs {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}
