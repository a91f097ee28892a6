package ecs

import (
	"iter"
	"unsafe"
)

// iComponentStorage is a type-erased view over the storage of one component type.
type iComponentStorage interface {
	Type() ComponentType
	Has(e Entity) bool
	Get(e Entity) any
	Pointer(e Entity) unsafe.Pointer
	Delete(e Entity)
	Len() int
	Compact()
	Iter() iter.Seq[Entity]
}
