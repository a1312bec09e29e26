package view

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves the names of custom comparators and predicates when a
// persisted configuration is decoded. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	comparators map[string]Comparator
	predicates  map[string]Predicate
	factories   map[string]PredicateFactory
}

// PredicateFactory builds the predicate for the part of a name that follows
// its registered prefix, e.g. "history" for "topic:history".
type PredicateFactory func(param string) (Predicate, error)

func NewRegistry() *Registry {
	return &Registry{
		comparators: make(map[string]Comparator),
		predicates:  make(map[string]Predicate),
		factories:   make(map[string]PredicateFactory),
	}
}

func (r *Registry) RegisterComparator(name string, comparator Comparator) error {
	if strings.TrimSpace(name) == "" {
		return ErrUnnamedComparator
	}
	if comparator == nil {
		return ErrNilComparator
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comparators[name]; ok {
		return fmt.Errorf("comparator %q: %w", name, ErrDuplicateRegistered)
	}
	r.comparators[name] = comparator
	return nil
}

func (r *Registry) RegisterPredicate(p Predicate) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrUnnamedPredicate
	}
	if p.Match == nil {
		return fmt.Errorf("predicate %q has no match func", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.predicates[p.Name]; ok {
		return fmt.Errorf("predicate %q: %w", p.Name, ErrDuplicateRegistered)
	}
	r.predicates[p.Name] = p
	return nil
}

// RegisterPredicateFactory resolves every predicate name starting with prefix
// that has no exact registration. The longest matching prefix wins.
func (r *Registry) RegisterPredicateFactory(prefix string, factory PredicateFactory) error {
	if strings.TrimSpace(prefix) == "" {
		return ErrUnnamedPredicate
	}
	if factory == nil {
		return fmt.Errorf("predicate factory %q is nil", prefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[prefix]; ok {
		return fmt.Errorf("predicate factory %q: %w", prefix, ErrDuplicateRegistered)
	}
	r.factories[prefix] = factory
	return nil
}

// Comparator looks up a comparator by name. A nil registry knows no names.
func (r *Registry) Comparator(name string) (Comparator, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comparators[name]
	return c, ok
}

// Predicate looks up a predicate by its exact name, then through the factory
// with the longest prefix of name. The built predicate always carries name.
func (r *Registry) Predicate(name string) (Predicate, bool) {
	if r == nil {
		return Predicate{}, false
	}
	r.mu.RLock()
	p, ok := r.predicates[name]
	var (
		prefix  string
		factory PredicateFactory
	)
	if !ok {
		for pre, f := range r.factories {
			if strings.HasPrefix(name, pre) && len(pre) > len(prefix) {
				prefix, factory = pre, f
			}
		}
	}
	r.mu.RUnlock()

	if ok || factory == nil {
		return p, ok
	}
	p, err := factory(strings.TrimPrefix(name, prefix))
	if err != nil || p.Match == nil {
		return Predicate{}, false
	}
	p.Name = name
	return p, true
}

// CustomSort builds custom criteria from a registered comparator.
func (r *Registry) CustomSort(name string, direction Direction) (SortCriteria, error) {
	c, ok := r.Comparator(name)
	if !ok {
		return SortCriteria{}, UnregisteredError{Kind: "comparator", Name: name}
	}
	return CustomSort(name, c, direction)
}
