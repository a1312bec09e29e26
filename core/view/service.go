package view

import (
	"context"
	"sync"

	"github.com/goto/salt/log"
)

// Service holds the active criteria of one session. Every transition is
// published through the Notifier before anything is persisted.
type Service struct {
	store    *Store
	notifier *Notifier
	clock    Clock
	logger   log.Logger

	mu       sync.Mutex
	sort     SortCriteria
	filter   FilterCriteria
	remember bool
}

type ServiceDeps struct {
	Store    *Store
	Notifier *Notifier
	Clock    Clock
	Logger   log.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNoop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	def := DefaultConfiguration()
	return &Service{
		store:    deps.Store,
		notifier: notifier,
		clock:    clockOrSystem(deps.Clock),
		logger:   logger,
		sort:     def.Sort,
		filter:   def.Filter,
	}
}

func (s *Service) Notifier() *Notifier { return s.notifier }

// Criteria returns the active criteria pair.
func (s *Service) Criteria() (SortCriteria, FilterCriteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort, s.filter.With()
}

func (s *Service) RememberLastSort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remember
}

// SetSort replaces the sort criteria and reports whether it changed.
func (s *Service) SetSort(c SortCriteria) bool {
	s.mu.Lock()
	if s.sort.Equal(c) {
		s.mu.Unlock()
		return false
	}
	ev := NewSortingChanged(s.clock, s.sort, c)
	s.sort = c
	s.publishLocked(ev)
	return true
}

// ToggleDirection flips the sort direction and returns the new criteria.
func (s *Service) ToggleDirection() SortCriteria {
	s.mu.Lock()
	next := s.sort.Toggled()
	ev := NewSortingChanged(s.clock, s.sort, next)
	s.sort = next
	s.publishLocked(ev)
	return next
}

// SetFilter replaces the filter criteria and reports whether it changed.
func (s *Service) SetFilter(c FilterCriteria) bool {
	s.mu.Lock()
	if s.filter.Equal(c) {
		s.mu.Unlock()
		return false
	}
	ev := NewFilterChanged(s.clock, s.filter, c)
	s.filter = c.With()
	s.publishLocked(ev)
	return true
}

func (s *Service) SetRememberLastSort(remember bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember = remember
}

// publishLocked must be called with s.mu held. The event is queued while
// s.mu is held, so events keep transition order, and delivered after s.mu is
// released, so observers may read and change the service.
func (s *Service) publishLocked(ev Event) {
	s.notifier.enqueue(ev)
	s.mu.Unlock()
	s.notifier.drain()
}

// Snapshot stamps the active criteria as a Configuration.
func (s *Service) Snapshot() Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewConfiguration(s.clock, s.sort, s.filter.With(), s.remember)
}

// Persist saves the active criteria. Without a store it is a no-op.
func (s *Service) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, s.Snapshot())
}

// Restore loads the stored configuration and makes it active. The stored
// sort is only applied when it was saved with RememberLastSort; otherwise the
// default sort is used. Changes are published like any other transition.
func (s *Service) Restore(ctx context.Context) Configuration {
	cfg := DefaultConfiguration()
	if s.store != nil {
		cfg = s.store.Load(ctx)
	}

	sort := DefaultConfiguration().Sort
	if cfg.RememberLastSort {
		sort = cfg.Sort
	}
	s.SetRememberLastSort(cfg.RememberLastSort)
	s.SetSort(sort)
	s.SetFilter(cfg.Filter)

	s.logger.Debug("view configuration restored", "sort", sort.String(), "remember_last_sort", cfg.RememberLastSort)
	return cfg
}

// View applies the service's active criteria to rs.
func View[R Record](s *Service, rs []R) []R {
	sort, filter := s.Criteria()
	return Apply(sort, filter, rs)
}
