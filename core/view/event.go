package view

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/r3labs/diff/v2"
)

type EventKind string

const (
	KindSortingChanged EventKind = "sorting_changed"
	KindFilterChanged  EventKind = "filter_changed"
)

// Event is a criteria transition. The only implementations are
// SortingChanged and FilterChanged.
type Event interface {
	ID() ulid.ULID
	Kind() EventKind
	Timestamp() time.Time
	Changelog() (diff.Changelog, error)

	isEvent()
}

// SortingChanged records a transition between two SortCriteria.
type SortingChanged struct {
	id          ulid.ULID
	oldCriteria SortCriteria
	newCriteria SortCriteria
	at          time.Time
}

func NewSortingChanged(clock Clock, oldCriteria, newCriteria SortCriteria) SortingChanged {
	at := clockOrSystem(clock).Now()
	return SortingChanged{
		id:          newEventID(at),
		oldCriteria: oldCriteria,
		newCriteria: newCriteria,
		at:          at,
	}
}

func (e SortingChanged) ID() ulid.ULID        { return e.id }
func (e SortingChanged) Kind() EventKind      { return KindSortingChanged }
func (e SortingChanged) Timestamp() time.Time { return e.at }
func (e SortingChanged) Old() SortCriteria    { return e.oldCriteria }
func (e SortingChanged) New() SortCriteria    { return e.newCriteria }
func (SortingChanged) isEvent()               {}

// Changelog lists the fields that differ between the old and new criteria.
func (e SortingChanged) Changelog() (diff.Changelog, error) {
	return diff.Diff(e.oldCriteria.State(), e.newCriteria.State())
}

// FilterChanged records a transition between two FilterCriteria.
type FilterChanged struct {
	id          ulid.ULID
	oldCriteria FilterCriteria
	newCriteria FilterCriteria
	at          time.Time
}

func NewFilterChanged(clock Clock, oldCriteria, newCriteria FilterCriteria) FilterChanged {
	at := clockOrSystem(clock).Now()
	return FilterChanged{
		id:          newEventID(at),
		oldCriteria: oldCriteria.With(),
		newCriteria: newCriteria.With(),
		at:          at,
	}
}

func (e FilterChanged) ID() ulid.ULID        { return e.id }
func (e FilterChanged) Kind() EventKind      { return KindFilterChanged }
func (e FilterChanged) Timestamp() time.Time { return e.at }
func (e FilterChanged) Old() FilterCriteria  { return e.oldCriteria.With() }
func (e FilterChanged) New() FilterCriteria  { return e.newCriteria.With() }
func (FilterChanged) isEvent()               {}

func (e FilterChanged) Changelog() (diff.Changelog, error) {
	return diff.Diff(e.oldCriteria.State(), e.newCriteria.State())
}

// Observer receives change events. Observers are compared with == by
// Unsubscribe, so implementations should be pointer types.
type Observer interface {
	OnSortingChanged(SortingChanged)
	OnFilterChanged(FilterChanged)
}

// ObserverFuncs adapts plain functions to an Observer. A nil func ignores
// that kind of event. Use it through a pointer.
type ObserverFuncs struct {
	Sorting func(SortingChanged)
	Filter  func(FilterChanged)
}

func (o *ObserverFuncs) OnSortingChanged(e SortingChanged) {
	if o.Sorting != nil {
		o.Sorting(e)
	}
}

func (o *ObserverFuncs) OnFilterChanged(e FilterChanged) {
	if o.Filter != nil {
		o.Filter(e)
	}
}

func newEventID(at time.Time) ulid.ULID {
	id, err := ulid.New(ulid.Timestamp(at), ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make()
	}
	return id
}
