package ecs_test

import "github.com/plus3/sigecs/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type Flag struct {
	Value int
}

type Hitbox struct {
	X, Y, W, H float32
}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

type movement struct {
	Position *Position
	Velocity ecs.ReadOnly[Velocity]
}

func moveSystem(_ *ecs.Registry, _ ecs.Entity, c movement) error {
	v := c.Velocity.Get()
	c.Position.X += v.DX
	c.Position.Y += v.DY
	return nil
}

// spawn creates an entity in r with the given components attached.
func spawn(r *ecs.Registry, components ...any) ecs.Entity {
	s := r.Store()
	e := s.CreateEntity()
	for _, c := range components {
		var err error
		switch v := c.(type) {
		case Position:
			err = ecs.AddComponent(s, e, v)
		case Velocity:
			err = ecs.AddComponent(s, e, v)
		case Name:
			err = ecs.AddComponent(s, e, v)
		case Health:
			err = ecs.AddComponent(s, e, v)
		case Flag:
			err = ecs.AddComponent(s, e, v)
		case Hitbox:
			err = ecs.AddComponent(s, e, v)
		case Score:
			err = ecs.AddComponent(s, e, v)
		case Tag:
			err = ecs.AddComponent(s, e, v)
		default:
			panic("unsupported test component")
		}
		if err != nil {
			panic(err)
		}
	}
	return e
}
