package ecs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownEntity is returned when an operation references an entity that is not live.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrMissingComponent marks a dispatch that reached a callback without one of its
	// signature components. RunSystems checks presence first, so this only surfaces as a panic.
	ErrMissingComponent = errors.New("missing component")

	// ErrTickRunning is returned by RunSystems when it is called while a tick is in progress.
	ErrTickRunning = errors.New("tick already running")

	// ErrResourceExhausted is raised (as a panic) when the entity id space is used up.
	ErrResourceExhausted = errors.New("entity ids exhausted")
)

func unknownEntity(e Entity) error {
	return errors.Wrapf(ErrUnknownEntity, "entity %d", uint64(e))
}

// SystemError wraps an error returned by a system callback with the system and
// entity it was running against.
type SystemError struct {
	System string
	Entity Entity
	Err    error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system %q on entity %d: %v", e.System, uint64(e.Entity), e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}
