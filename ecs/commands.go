package ecs

import "go.uber.org/multierr"

// Commands buffers structural changes that are applied at the end of a tick.
// Systems may also change the store directly; commands are for changes that
// should not be observed by the rest of the current tick.
type Commands struct {
	destroys []Entity
	removes  []entityCommand
	adds     []entityCommand
	creates  []createCommand
	defers   []func()
}

func newCommands() *Commands {
	return &Commands{}
}

type entityCommand struct {
	entity Entity
	apply  func(s *Store) error
}

type createCommand struct {
	init func(r *Registry, e Entity) error
}

// Defer queues a function to run after all other commands have been applied.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Create queues the creation of an entity. init, if non-nil, is called with the
// new entity so it can attach components.
func (c *Commands) Create(init func(r *Registry, e Entity) error) {
	c.creates = append(c.creates, createCommand{init: init})
}

// Destroy queues an entity destruction.
func (c *Commands) Destroy(e Entity) {
	c.destroys = append(c.destroys, e)
}

// DeferAdd queues attaching v to e.
func DeferAdd[T any](c *Commands, e Entity, v T) {
	c.adds = append(c.adds, entityCommand{
		entity: e,
		apply: func(s *Store) error {
			return AddComponent(s, e, v)
		},
	})
}

// DeferRemove queues detaching T from e.
func DeferRemove[T any](c *Commands, e Entity) {
	c.removes = append(c.removes, entityCommand{
		entity: e,
		apply: func(s *Store) error {
			RemoveComponent[T](s, e)
			return nil
		},
	})
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	return len(c.destroys) + len(c.removes) + len(c.adds) + len(c.creates) + len(c.defers)
}

// Flush applies all queued commands to the registry and resets the buffer.
// Commands are applied in order: destroys, removes, adds, creates, defers.
// Removes and adds targeting an entity destroyed by the same flush are dropped.
// Commands queued while flushing are kept for the next flush.
func (c *Commands) Flush(r *Registry) error {
	if c.Len() == 0 {
		return nil
	}

	destroys, removes, adds, creates, defers := c.destroys, c.removes, c.adds, c.creates, c.defers
	c.destroys, c.removes, c.adds, c.creates, c.defers = nil, nil, nil, nil, nil

	var errs error
	deleted := make(map[Entity]bool, len(destroys))
	for _, e := range destroys {
		if deleted[e] {
			continue
		}
		errs = multierr.Append(errs, r.store.DestroyEntity(e))
		deleted[e] = true
	}

	for _, cmd := range removes {
		if !deleted[cmd.entity] {
			errs = multierr.Append(errs, cmd.apply(r.store))
		}
	}

	for _, cmd := range adds {
		if !deleted[cmd.entity] {
			errs = multierr.Append(errs, cmd.apply(r.store))
		}
	}

	for _, cmd := range creates {
		e := r.store.CreateEntity()
		if cmd.init != nil {
			errs = multierr.Append(errs, cmd.init(r, e))
		}
	}

	for _, fn := range defers {
		fn()
	}

	return errs
}
