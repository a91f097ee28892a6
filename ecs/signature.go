package ecs

import (
	"reflect"
	"strings"
	"unsafe"
)

// ReadOnly declares read-only access to component T in a system signature.
// The system sees the component through Get, which returns a copy.
type ReadOnly[T any] struct {
	ptr *T
}

// Get returns a copy of the component.
func (r ReadOnly[T]) Get() T {
	return *r.ptr
}

func (ReadOnly[T]) componentType() reflect.Type {
	return reflect.TypeFor[T]()
}

type readOnlyField interface {
	componentType() reflect.Type
}

var readOnlyFieldType = reflect.TypeFor[readOnlyField]()

// Access is one element of a Signature: a component type and whether the
// system only reads it.
type Access struct {
	Type     reflect.Type
	ReadOnly bool
}

func (a Access) String() string {
	if a.ReadOnly {
		return "const " + a.Type.String()
	}
	return a.Type.String()
}

// Signature is the ordered list of components a system requires.
type Signature []Access

func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = a.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// Types returns the component types of the signature in declaration order.
func (s Signature) Types() []reflect.Type {
	types := make([]reflect.Type, len(s))
	for i, a := range s {
		types[i] = a.Type
	}
	return types
}

// signatureLayout is a Signature together with where each element lives in the
// system's component struct and which storage currently backs it.
type signatureLayout struct {
	signature   Signature
	fieldOffset []uintptr

	// resolved[i] is the storage id backing signature[i], or -1 while no entity has
	// ever held that type. resolvedAt is the storage count the ids were resolved against.
	resolved   []ComponentID
	resolvedAt int
}

// parseSignature builds the layout for a component struct type.
// Each exported field is one signature element, in declaration order:
// *C requests read-write access to C, ReadOnly[C] requests read-only access.
// A struct with no fields is the empty signature and matches every entity.
func parseSignature(structType reflect.Type) *signatureLayout {
	if structType.Kind() != reflect.Struct {
		panic("system component type must be a struct, got " + structType.String())
	}

	layout := &signatureLayout{
		signature:   make(Signature, 0, structType.NumField()),
		fieldOffset: make([]uintptr, 0, structType.NumField()),
		resolvedAt:  -1,
	}
	seen := make(map[reflect.Type]bool, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() && !field.Anonymous {
			panic("system component field " + field.Name + " must be exported")
		}

		var access Access
		switch {
		case field.Type.Kind() == reflect.Ptr:
			access = Access{Type: field.Type.Elem()}
		case field.Type.Implements(readOnlyFieldType):
			ro := reflect.Zero(field.Type).Interface().(readOnlyField)
			access = Access{Type: ro.componentType(), ReadOnly: true}
		default:
			panic("system component field " + field.Name + " must be a pointer or ecs.ReadOnly, got " + field.Type.String())
		}

		checkComponentKind(access.Type)
		if seen[access.Type] {
			panic("component " + access.Type.String() + " appears twice in signature of " + structType.String())
		}
		seen[access.Type] = true

		layout.signature = append(layout.signature, access)
		layout.fieldOffset = append(layout.fieldOffset, field.Offset)
	}

	layout.resolved = make([]ComponentID, len(layout.signature))
	return layout
}

// resolve maps signature types to storage ids. It only does work when new
// component types were registered since the previous call.
func (l *signatureLayout) resolve(s *Store) {
	if l.resolvedAt == len(s.storages) {
		return
	}
	for i, access := range l.signature {
		if ct, ok := s.types[access.Type]; ok {
			l.resolved[i] = ct.ID
		} else {
			l.resolved[i] = -1
		}
	}
	l.resolvedAt = len(s.storages)
}

// matches reports whether e holds every component of the signature.
func (l *signatureLayout) matches(s *Store, e Entity) bool {
	l.resolve(s)
	for _, id := range l.resolved {
		if id < 0 || !s.storages[id].Has(e) {
			return false
		}
	}
	return true
}

// fill writes a pointer to each of e's signature components into the struct at dst.
// Both *C and ReadOnly[C] fields are a single pointer word, so the same write serves both.
func (l *signatureLayout) fill(s *Store, e Entity, dst unsafe.Pointer) {
	l.resolve(s)
	for i, id := range l.resolved {
		var componentPtr unsafe.Pointer
		if id >= 0 {
			componentPtr = s.storages[id].Pointer(e)
		}
		if componentPtr == nil {
			panic(ErrMissingComponent.Error() + ": " + l.signature[i].Type.String())
		}
		*(*unsafe.Pointer)(unsafe.Add(dst, l.fieldOffset[i])) = componentPtr
	}
}
