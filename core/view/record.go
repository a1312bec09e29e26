package view

import (
	"reflect"
	"time"
)

// Record is an item a view can order and filter. Implementations must be safe
// to call on a nil receiver when they are pointer types.
type Record interface {
	GetTitle() string
	GetText() string
	GetCreatedAt() time.Time
}

// absent reports whether r is nil or a nil pointer held in the interface.
func absent(r Record) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
