package view

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound            = errors.New("view configuration not found")
	ErrUnknownSortField    = errors.New("unknown sort field")
	ErrUnknownDirection    = errors.New("unknown sort direction")
	ErrNilComparator       = errors.New("nil comparator")
	ErrUnnamedComparator   = errors.New("comparator has no name")
	ErrUnnamedPredicate    = errors.New("predicate has no name")
	ErrUnsupportedVersion  = errors.New("unsupported configuration version")
	ErrStoreClosed         = errors.New("view store is closed")
	ErrDuplicateRegistered = errors.New("name already registered")
)

// InvalidRangeError is returned when a date range starts after it ends.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (err InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		err.Start.Format(time.RFC3339), err.End.Format(time.RFC3339))
}

// UnregisteredError is returned when a persisted configuration names a
// comparator or predicate that is not in the registry.
type UnregisteredError struct {
	Kind string
	Name string
}

func (err UnregisteredError) Error() string {
	return fmt.Sprintf("%s %q is not registered", err.Kind, err.Name)
}

// PersistenceError describes why a stored configuration could not be read.
// Store.Load only logs it.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (err *PersistenceError) Error() string {
	var s strings.Builder
	s.WriteString("view persistence error: ")
	if err.Op != "" {
		s.WriteString(err.Op + ": ")
	}
	if err.Key != "" {
		s.WriteString("key '" + err.Key + "': ")
	}
	s.WriteString(err.Err.Error())
	return s.String()
}

func (err *PersistenceError) Unwrap() error { return err.Err }

// SaveError is returned by Store.Save when the durable write failed. The
// in-memory configuration is updated regardless.
type SaveError struct {
	Key string
	Err error
}

func (err *SaveError) Error() string {
	return fmt.Sprintf("save view configuration %q: %s", err.Key, err.Err)
}

func (err *SaveError) Unwrap() error { return err.Err }
