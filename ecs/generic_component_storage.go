package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// ComponentID is the per-Store index of a component type, assigned in first-use order.
type ComponentID int

// ComponentType describes a registered component type: its Store-local id,
// its Go type and the size of one value.
type ComponentType struct {
	ID   ComponentID
	Type reflect.Type
	Size uintptr
}

func (ct ComponentType) String() string {
	return ct.Type.String()
}

// RegisterComponent registers T with the store and returns its ComponentType.
// Registration is implicit on first AddComponent; calling it up front only fixes id order.
func RegisterComponent[T any](s *Store) ComponentType {
	return storageFor[T](s, true).typ
}

// storageFor returns the typed storage for T, creating it when create is set.
// Returns nil if T has not been registered and create is false.
func storageFor[T any](s *Store, create bool) *genericComponentStorage[T] {
	t := reflect.TypeFor[T]()
	if ct, ok := s.types[t]; ok {
		return s.storages[ct.ID].(*genericComponentStorage[T])
	}
	if !create {
		return nil
	}

	checkComponentKind(t)
	ct := ComponentType{
		ID:   ComponentID(len(s.storages)),
		Type: t,
		Size: t.Size(),
	}
	cs := newGenericComponentStorage[T](ct)
	s.types[t] = ct
	s.storages = append(s.storages, cs)
	return cs
}

// checkComponentKind rejects types that are not plain values.
func checkComponentKind(t reflect.Type) {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("component " + t.String() + " must be a value type, not a pointer, map, channel, function or interface")
	}
}

const (
	genericBlockSize = 64
)

// genericComponentStorage stores components of type T in fixed-size blocks.
// Blocks are allocated individually so slot addresses stay put while the storage grows;
// only Delete and Compact invalidate pointers handed out by Get.
type genericComponentStorage[T any] struct {
	typ       ComponentType
	blocks    []*[genericBlockSize]T
	owners    []*[genericBlockSize]Entity
	slots     *intmap.Map[Entity, int]
	freeSlots []int
	nextIndex int
}

func newGenericComponentStorage[T any](typ ComponentType) *genericComponentStorage[T] {
	return &genericComponentStorage[T]{
		typ:   typ,
		slots: intmap.New[Entity, int](genericBlockSize),
	}
}

func (cs *genericComponentStorage[T]) Type() ComponentType {
	return cs.typ
}

// Set stores item for e, overwriting any existing value in place.
func (cs *genericComponentStorage[T]) Set(e Entity, item T) *T {
	if index, ok := cs.slots.Get(e); ok {
		slot := &cs.blocks[index/genericBlockSize][index%genericBlockSize]
		*slot = item
		return slot
	}

	var index int
	if len(cs.freeSlots) > 0 {
		index = cs.freeSlots[len(cs.freeSlots)-1]
		cs.freeSlots = cs.freeSlots[:len(cs.freeSlots)-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/genericBlockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new([genericBlockSize]T))
			cs.owners = append(cs.owners, new([genericBlockSize]Entity))
		}
	}

	blockIdx := index / genericBlockSize
	slotIdx := index % genericBlockSize

	cs.blocks[blockIdx][slotIdx] = item
	cs.owners[blockIdx][slotIdx] = e
	cs.slots.Put(e, index)
	return &cs.blocks[blockIdx][slotIdx]
}

// Typed returns a pointer to e's component, or nil.
func (cs *genericComponentStorage[T]) Typed(e Entity) *T {
	index, ok := cs.slots.Get(e)
	if !ok {
		return nil
	}
	return &cs.blocks[index/genericBlockSize][index%genericBlockSize]
}

// Get returns e's component as a *T boxed in an interface, or nil.
func (cs *genericComponentStorage[T]) Get(e Entity) any {
	ptr := cs.Typed(e)
	if ptr == nil {
		return nil
	}
	return ptr
}

func (cs *genericComponentStorage[T]) Pointer(e Entity) unsafe.Pointer {
	return unsafe.Pointer(cs.Typed(e))
}

func (cs *genericComponentStorage[T]) Has(e Entity) bool {
	_, ok := cs.slots.Get(e)
	return ok
}

// Delete frees e's slot and zeroes it so the value can be collected.
func (cs *genericComponentStorage[T]) Delete(e Entity) {
	index, ok := cs.slots.Get(e)
	if !ok {
		return
	}
	cs.slots.Del(e)

	blockIdx := index / genericBlockSize
	slotIdx := index % genericBlockSize

	var zero T
	cs.blocks[blockIdx][slotIdx] = zero
	cs.owners[blockIdx][slotIdx] = 0
	cs.freeSlots = append(cs.freeSlots, index)
}

func (cs *genericComponentStorage[T]) Len() int {
	return cs.slots.Len()
}

// Compact packs live components into the lowest slots and drops empty blocks.
func (cs *genericComponentStorage[T]) Compact() {
	total := cs.slots.Len()
	if total == 0 {
		cs.blocks = nil
		cs.owners = nil
		cs.freeSlots = nil
		cs.nextIndex = 0
		return
	}

	numBlocks := (total + genericBlockSize - 1) / genericBlockSize
	newBlocks := make([]*[genericBlockSize]T, numBlocks)
	newOwners := make([]*[genericBlockSize]Entity, numBlocks)
	for i := range newBlocks {
		newBlocks[i] = new([genericBlockSize]T)
		newOwners[i] = new([genericBlockSize]Entity)
	}

	writePos := 0
	for readIdx := 0; readIdx < cs.nextIndex; readIdx++ {
		owner := cs.owners[readIdx/genericBlockSize][readIdx%genericBlockSize]
		if owner == 0 {
			continue
		}

		writeBlockIdx := writePos / genericBlockSize
		writeSlotIdx := writePos % genericBlockSize

		newBlocks[writeBlockIdx][writeSlotIdx] = cs.blocks[readIdx/genericBlockSize][readIdx%genericBlockSize]
		newOwners[writeBlockIdx][writeSlotIdx] = owner
		cs.slots.Put(owner, writePos)
		writePos++
	}

	cs.blocks = newBlocks
	cs.owners = newOwners
	cs.freeSlots = nil
	cs.nextIndex = writePos
}

// Iter yields the owning entity of every occupied slot in slot order.
func (cs *genericComponentStorage[T]) Iter() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := 0; i < cs.nextIndex; i++ {
			owner := cs.owners[i/genericBlockSize][i%genericBlockSize]
			if owner == 0 {
				continue
			}
			if !yield(owner) {
				return
			}
		}
	}
}
