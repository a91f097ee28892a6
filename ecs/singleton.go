package ecs

import (
	"reflect"
	"sort"
)

// Singleton provides access to a single component instance that is not
// associated with any entity. Use this for global state such as input or
// backend handles.
type Singleton[T any] struct {
	store *Store
	value *T
}

// NewSingleton returns an accessor for the store's T singleton. If none exists
// yet it is created from the initializer, or the zero value when none is given.
func NewSingleton[T any](store *Store, initializer ...T) *Singleton[T] {
	t := reflect.TypeFor[T]()
	if _, ok := store.singletons[t]; !ok {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		store.singletons[t] = &value
	}
	return &Singleton[T]{store: store, value: store.singletons[t].(*T)}
}

// Get returns a pointer to the singleton value.
func (s *Singleton[T]) Get() *T {
	return s.value
}

// Exists reports whether the singleton is still present in the store.
func (s *Singleton[T]) Exists() bool {
	current, ok := s.store.singletons[reflect.TypeFor[T]()]
	return ok && current == any(s.value)
}

// RemoveSingleton drops the store's T singleton. Existing accessors keep their
// value but report Exists() == false.
func RemoveSingleton[T any](store *Store) {
	delete(store.singletons, reflect.TypeFor[T]())
}

// SingletonTypes returns the type names of every singleton, sorted.
func (s *Store) SingletonTypes() []string {
	names := make([]string, 0, len(s.singletons))
	for t := range s.singletons {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}
