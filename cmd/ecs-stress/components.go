package main

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

// Hitbox is an axis-aligned box anchored at the entity's position.
type Hitbox struct {
	X, Y          float32
	Width, Height float32
	Colliding     bool
}

// Controllable marks entities steered by the control system. Input is the
// direction applied each tick.
type Controllable struct {
	Speed  float32
	InputX float32
	InputY float32
}

func (h Hitbox) Overlaps(o Hitbox) bool {
	return h.X < o.X+o.Width && o.X < h.X+h.Width &&
		h.Y < o.Y+o.Height && o.Y < h.Y+h.Height
}

// Lifetime counts down once per tick. Expired entities are replaced by a
// fresh random one, keeping the population steady while churning ids.
type Lifetime struct {
	Ticks int
}

// Clock is the singleton holding the simulated step of the current tick.
type Clock struct {
	Delta float32
}
