package ecs

import (
	"iter"
	"math"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
)

// Store owns the live entities and every component attached to them.
// Components of each type live in their own block storage keyed by entity.
type Store struct {
	nextID Entity

	// order holds live entities in creation order. Destroyed entities leave a
	// zero tombstone that is squeezed out once tombstones dominate.
	order      []Entity
	index      *intmap.Map[Entity, int]
	tombstones int

	types    map[reflect.Type]ComponentType
	storages []iComponentStorage

	singletons map[reflect.Type]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return newStoreWithCapacity(256)
}

func newStoreWithCapacity(capacity int) *Store {
	return &Store{
		order:      make([]Entity, 0, capacity),
		index:      intmap.New[Entity, int](capacity),
		types:      make(map[reflect.Type]ComponentType),
		singletons: make(map[reflect.Type]any),
	}
}

// CreateEntity allocates a fresh entity with no components.
func (s *Store) CreateEntity() Entity {
	if s.nextID == math.MaxUint64 {
		panic(ErrResourceExhausted)
	}
	s.nextID++
	e := s.nextID

	s.index.Put(e, len(s.order))
	s.order = append(s.order, e)
	return e
}

// DestroyEntity removes e and all of its components.
func (s *Store) DestroyEntity(e Entity) error {
	pos, ok := s.index.Get(e)
	if !ok {
		return unknownEntity(e)
	}

	for _, storage := range s.storages {
		storage.Delete(e)
	}

	s.index.Del(e)
	s.order[pos] = 0
	s.tombstones++
	if s.tombstones > 32 && s.tombstones*2 > len(s.order) {
		s.squeeze()
	}
	return nil
}

// squeeze drops tombstones from order, keeping creation order.
func (s *Store) squeeze() {
	live := s.order[:0]
	for _, e := range s.order {
		if e == 0 {
			continue
		}
		s.index.Put(e, len(live))
		live = append(live, e)
	}
	clear(s.order[len(live):])
	s.order = live
	s.tombstones = 0
}

// Alive reports whether e is a live entity of this store.
func (s *Store) Alive(e Entity) bool {
	_, ok := s.index.Get(e)
	return ok
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	return s.index.Len()
}

// Entities returns a copy of the live entities in creation order.
func (s *Store) Entities() []Entity {
	return s.appendEntities(make([]Entity, 0, s.Len()))
}

func (s *Store) appendEntities(dst []Entity) []Entity {
	for _, e := range s.order {
		if e != 0 {
			dst = append(dst, e)
		}
	}
	return dst
}

// EachEntity iterates live entities in creation order without copying.
// The store must not be structurally modified while ranging.
func (s *Store) EachEntity() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range s.order {
			if e == 0 {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// ComponentTypes returns the types of every component attached to e, in registration order.
func (s *Store) ComponentTypes(e Entity) []ComponentType {
	var types []ComponentType
	for _, storage := range s.storages {
		if storage.Has(e) {
			types = append(types, storage.Type())
		}
	}
	return types
}

// Component returns a pointer to e's component of the given type boxed in an interface, or nil.
func (s *Store) Component(e Entity, ct ComponentType) any {
	if ct.ID < 0 || int(ct.ID) >= len(s.storages) || s.storages[ct.ID].Type().Type != ct.Type {
		return nil
	}
	return s.storages[ct.ID].Get(e)
}

// LookupComponentType returns the registered ComponentType for t.
func (s *Store) LookupComponentType(t reflect.Type) (ComponentType, bool) {
	ct, ok := s.types[t]
	return ct, ok
}

// RegisteredTypes returns every registered component type ordered by id.
func (s *Store) RegisteredTypes() []ComponentType {
	types := make([]ComponentType, len(s.storages))
	for i, storage := range s.storages {
		types[i] = storage.Type()
	}
	return types
}

// Compact repacks every component storage. Component pointers obtained before
// the call are invalid afterwards.
func (s *Store) Compact() {
	for _, storage := range s.storages {
		storage.Compact()
	}
	if s.tombstones > 0 {
		s.squeeze()
	}
}

// AddComponent attaches v to e, replacing any existing component of type T.
func AddComponent[T any](s *Store, e Entity, v T) error {
	if !s.Alive(e) {
		return unknownEntity(e)
	}
	storageFor[T](s, true).Set(e, v)
	return nil
}

// RemoveComponent detaches T from e. It is a no-op when e has no T or is not live.
func RemoveComponent[T any](s *Store, e Entity) {
	if cs := storageFor[T](s, false); cs != nil {
		cs.Delete(e)
	}
}

// GetComponent returns a pointer to e's component of type T, or nil.
// The pointer stays valid until the component is removed, e is destroyed or the store is compacted.
func GetComponent[T any](s *Store, e Entity) *T {
	cs := storageFor[T](s, false)
	if cs == nil {
		return nil
	}
	return cs.Typed(e)
}

// HasComponent reports whether e holds a component of type T.
func HasComponent[T any](s *Store, e Entity) bool {
	cs := storageFor[T](s, false)
	return cs != nil && cs.Has(e)
}

// EntitiesWith returns the live entities holding every one of the given component types,
// in creation order.
func (s *Store) EntitiesWith(types ...reflect.Type) []Entity {
	storages := make([]iComponentStorage, 0, len(types))
	for _, t := range types {
		ct, ok := s.types[t]
		if !ok {
			return nil
		}
		storages = append(storages, s.storages[ct.ID])
	}

	var result []Entity
	for e := range s.EachEntity() {
		if !slices.ContainsFunc(storages, func(cs iComponentStorage) bool { return !cs.Has(e) }) {
			result = append(result, e)
		}
	}
	return result
}
