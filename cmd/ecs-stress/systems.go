package main

import (
	"math/rand/v2"

	"github.com/plus3/sigecs/ecs"
)

const (
	worldSize = 1024
	cellSize  = 32
)

type movement struct {
	Position *Position
	Velocity ecs.ReadOnly[Velocity]
}

type hitboxUpdate struct {
	Position ecs.ReadOnly[Position]
	Hitbox   *Hitbox
}

type control struct {
	Position     *Position
	Controllable ecs.ReadOnly[Controllable]
}

type collision struct {
	Hitbox *Hitbox
}

type expiry struct {
	Lifetime *Lifetime
}

type cell struct {
	X, Y int32
}

// collisionGrid buckets the hitboxes already visited during the current tick.
type collisionGrid struct {
	tick  uint64
	cells map[cell][]ecs.Entity
}

func wrap(v float32) float32 {
	for v < 0 {
		v += worldSize
	}
	for v >= worldSize {
		v -= worldSize
	}
	return v
}

// RegisterEngineSystems registers movement, hitbox, control, collision and
// expiry, in that order.
func RegisterEngineSystems(r *ecs.Registry, rng *rand.Rand) {
	store := r.Store()
	clock := ecs.NewSingleton[Clock](store)
	grid := ecs.NewSingleton(store, collisionGrid{cells: make(map[cell][]ecs.Entity)})

	ecs.RegisterSystem(r, "movement", func(_ *ecs.Registry, _ ecs.Entity, c movement) error {
		dt := clock.Get().Delta
		v := c.Velocity.Get()
		c.Position.X = wrap(c.Position.X + v.DX*dt)
		c.Position.Y = wrap(c.Position.Y + v.DY*dt)
		return nil
	})

	ecs.RegisterSystem(r, "update_hitbox", func(_ *ecs.Registry, _ ecs.Entity, c hitboxUpdate) error {
		p := c.Position.Get()
		c.Hitbox.X = p.X
		c.Hitbox.Y = p.Y
		return nil
	})

	ecs.RegisterSystem(r, "control", func(_ *ecs.Registry, _ ecs.Entity, c control) error {
		dt := clock.Get().Delta
		ctl := c.Controllable.Get()
		c.Position.X = wrap(c.Position.X + ctl.InputX*ctl.Speed*dt)
		c.Position.Y = wrap(c.Position.Y + ctl.InputY*ctl.Speed*dt)
		return nil
	})

	ecs.RegisterSystem(r, "collision", func(r *ecs.Registry, e ecs.Entity, c collision) error {
		g := grid.Get()
		if g.tick != r.Tick() {
			g.tick = r.Tick()
			clear(g.cells)
		}

		box := c.Hitbox
		box.Colliding = false
		for _, k := range cellsCovering(*box) {
			for _, other := range g.cells[k] {
				ob := ecs.GetComponent[Hitbox](r.Store(), other)
				if ob == nil || !box.Overlaps(*ob) {
					continue
				}
				box.Colliding = true
				ob.Colliding = true
			}
			g.cells[k] = append(g.cells[k], e)
		}
		return nil
	})

	ecs.RegisterSystem(r, "expiry", func(r *ecs.Registry, e ecs.Entity, c expiry) error {
		c.Lifetime.Ticks--
		if c.Lifetime.Ticks > 0 {
			return nil
		}
		r.Commands().Destroy(e)
		r.Commands().Create(func(r *ecs.Registry, e ecs.Entity) error {
			return spawnComponents(r.Store(), e, rng)
		})
		return nil
	})
}

func cellsCovering(h Hitbox) []cell {
	x0, y0 := int32(h.X)/cellSize, int32(h.Y)/cellSize
	x1, y1 := int32(h.X+h.Width)/cellSize, int32(h.Y+h.Height)/cellSize

	cells := make([]cell, 0, 4)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			cells = append(cells, cell{X: x, Y: y})
		}
	}
	return cells
}

// Populate creates n entities with a random mix of engine components.
func Populate(r *ecs.Registry, n int, rng *rand.Rand) error {
	for i := 0; i < n; i++ {
		if err := spawnComponents(r.Store(), r.CreateEntity(), rng); err != nil {
			return err
		}
	}
	return nil
}

// spawnComponents gives e a Position and, by chance, Velocity, Hitbox,
// Controllable and Lifetime.
func spawnComponents(store *ecs.Store, e ecs.Entity, rng *rand.Rand) error {
	pos := Position{X: rng.Float32() * worldSize, Y: rng.Float32() * worldSize}
	if err := ecs.AddComponent(store, e, pos); err != nil {
		return err
	}

	if rng.Float32() < 0.7 {
		v := Velocity{DX: rng.Float32()*200 - 100, DY: rng.Float32()*200 - 100}
		if err := ecs.AddComponent(store, e, v); err != nil {
			return err
		}
	}
	if rng.Float32() < 0.5 {
		size := 4 + rng.Float32()*12
		h := Hitbox{X: pos.X, Y: pos.Y, Width: size, Height: size}
		if err := ecs.AddComponent(store, e, h); err != nil {
			return err
		}
	}
	if rng.Float32() < 0.1 {
		ctl := Controllable{Speed: 50, InputX: float32(rng.IntN(3) - 1), InputY: float32(rng.IntN(3) - 1)}
		if err := ecs.AddComponent(store, e, ctl); err != nil {
			return err
		}
	}
	if rng.Float32() < 0.2 {
		if err := ecs.AddComponent(store, e, Lifetime{Ticks: 30 + rng.IntN(300)}); err != nil {
			return err
		}
	}
	return nil
}
