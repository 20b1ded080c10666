// Package registry holds name-keyed tables that are written once at startup
// and read concurrently afterwards.
package registry

import (
	"slices"

	"github.com/alphadose/haxmap"
)

// Table maps names to values and falls back to a default for unknown names,
// so lookups never fail.
type Table[T any] struct {
	values   *haxmap.Map[string, T]
	fallback T
}

// New creates a table that answers fallback for names it does not hold.
func New[T any](fallback T) *Table[T] {
	return &Table[T]{
		values:   haxmap.New[string, T](),
		fallback: fallback,
	}
}

// Register maps every name to value. Later registrations win.
func (t *Table[T]) Register(value T, names ...string) {
	for _, name := range names {
		t.values.Set(name, value)
	}
}

// Lookup returns the value registered for name, or the fallback.
func (t *Table[T]) Lookup(name string) T {
	if v, ok := t.values.Get(name); ok {
		return v
	}
	return t.fallback
}

// Has reports whether name was registered explicitly.
func (t *Table[T]) Has(name string) bool {
	_, ok := t.values.Get(name)
	return ok
}

// Fallback returns the value used for unknown names.
func (t *Table[T]) Fallback() T {
	return t.fallback
}

// Names returns the registered names in sorted order.
func (t *Table[T]) Names() []string {
	names := make([]string, 0, t.values.Len())
	t.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}
