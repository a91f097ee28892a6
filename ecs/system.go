package ecs

import (
	"reflect"
	"time"
	"unsafe"
)

// SystemFunc is the callback of a system. It receives the registry, the matched
// entity and a struct T whose fields point at the entity's signature components.
//
// Read-write components are declared as *C fields, read-only ones as ReadOnly[C]:
//
//	type movement struct {
//		Position *Position
//		Velocity ecs.ReadOnly[Velocity]
//	}
//
// Component pointers are only valid for the duration of the call.
type SystemFunc[T any] func(r *Registry, e Entity, c T) error

// SystemID identifies a registered system by its registration index.
type SystemID int

// SystemInfo describes a registered system.
type SystemInfo struct {
	ID        SystemID
	Name      string
	Signature Signature
}

type system struct {
	id     SystemID
	name   string
	layout *signatureLayout
	invoke func(r *Registry, e Entity) error
	stats  *systemStatsInternal
}

// RegisterSystem appends a system to r. The signature is taken from the fields of T.
// Systems run in registration order; duplicates are allowed and each one runs.
// A system registered while a tick is running first runs on the next tick.
func RegisterSystem[T any](r *Registry, name string, fn SystemFunc[T]) SystemID {
	structType := reflect.TypeFor[T]()
	layout := parseSignature(structType)
	if name == "" {
		name = structType.String()
	}

	sys := &system{
		id:     SystemID(len(r.systems)),
		name:   name,
		layout: layout,
		stats: &systemStatsInternal{
			name:        name,
			minDuration: time.Duration(1<<63 - 1),
		},
	}
	sys.invoke = func(r *Registry, e Entity) error {
		var components T
		layout.fill(r.store, e, unsafe.Pointer(&components))
		return fn(r, e, components)
	}

	r.systems = append(r.systems, sys)
	r.logger.Debug("registered system",
		zapSystem(sys),
		zapSignature(layout.signature),
	)
	return sys.id
}

// Systems returns a description of every registered system in execution order.
func (r *Registry) Systems() []SystemInfo {
	infos := make([]SystemInfo, len(r.systems))
	for i, sys := range r.systems {
		infos[i] = SystemInfo{
			ID:        sys.id,
			Name:      sys.name,
			Signature: sys.layout.signature,
		}
	}
	return infos
}
