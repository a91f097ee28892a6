package ecs

import "strconv"

// Entity is an opaque handle to one logical object in a Store.
// Handles are allocated from a counter and never reused within a Store, so a stale
// handle can never alias a newer entity. The zero value is never a live entity.
type Entity uint64

// IsZero reports whether e is the zero handle.
func (e Entity) IsZero() bool {
	return e == 0
}

func (e Entity) String() string {
	return "entity(" + strconv.FormatUint(uint64(e), 10) + ")"
}
