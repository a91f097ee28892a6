package ecs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/plus3/sigecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMovementScenarios(t *testing.T) {
	t.Run("matching entity moves", func(t *testing.T) {
		r := ecs.NewRegistry()
		e := spawn(r, Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 1})
		ecs.RegisterSystem(r, "movement", moveSystem)

		require.NoError(t, r.RunSystems())

		assert.Equal(t, Position{X: 1, Y: 1}, *ecs.GetComponent[Position](r.Store(), e))
		assert.Equal(t, Velocity{DX: 1, DY: 1}, *ecs.GetComponent[Velocity](r.Store(), e))
	})

	t.Run("entity without velocity is not matched", func(t *testing.T) {
		r := ecs.NewRegistry()
		e := spawn(r, Position{X: 5, Y: 5})
		ecs.RegisterSystem(r, "movement", moveSystem)

		require.NoError(t, r.RunSystems())

		assert.Equal(t, Position{X: 5, Y: 5}, *ecs.GetComponent[Position](r.Store(), e))
	})
}

func TestSignatureFiltering(t *testing.T) {
	r := ecs.NewRegistry()

	both := spawn(r, Position{}, Velocity{})
	posOnly := spawn(r, Position{})
	velOnly := spawn(r, Velocity{})
	all := spawn(r, Position{}, Velocity{}, Health{})
	none := r.CreateEntity()

	var seen []ecs.Entity
	ecs.RegisterSystem(r, "observe running", func(_ *ecs.Registry, e ecs.Entity, c movement) error {
		seen = append(seen, e)
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, []ecs.Entity{both, all}, seen)
	assert.NotContains(t, seen, posOnly)
	assert.NotContains(t, seen, velOnly)
	assert.NotContains(t, seen, none)
}

func TestRegistrationOrder(t *testing.T) {
	r := ecs.NewRegistry()
	spawn(r, Flag{})

	var log []int
	ecs.RegisterSystem(r, "set flag", func(_ *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		c.Flag.Value = 1
		return nil
	})
	ecs.RegisterSystem(r, "read flag", func(_ *ecs.Registry, _ ecs.Entity, c struct{ Flag ecs.ReadOnly[Flag] }) error {
		log = append(log, c.Flag.Get().Value)
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, []int{1}, log)
}

func TestEntityMajorIteration(t *testing.T) {
	r := ecs.NewRegistry()
	a := spawn(r, Flag{})
	b := spawn(r, Flag{})

	var trace []string
	for _, name := range []string{"first", "second"} {
		ecs.RegisterSystem(r, name, func(_ *ecs.Registry, e ecs.Entity, c struct{ Flag *Flag }) error {
			trace = append(trace, fmt.Sprintf("%s:%d", name, e))
			return nil
		})
	}

	require.NoError(t, r.RunSystems())

	assert.Equal(t, []string{
		fmt.Sprintf("first:%d", a),
		fmt.Sprintf("second:%d", a),
		fmt.Sprintf("first:%d", b),
		fmt.Sprintf("second:%d", b),
	}, trace)
}

func TestComponentIsolation(t *testing.T) {
	r := ecs.NewRegistry()
	a := spawn(r, Position{X: 10}, Velocity{DX: 1})
	b := spawn(r, Position{X: 10}, Velocity{DX: 0})

	ecs.RegisterSystem(r, "mutate a", func(_ *ecs.Registry, e ecs.Entity, c movement) error {
		if e == a {
			c.Position.X = 99
		}
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, float32(99), ecs.GetComponent[Position](r.Store(), a).X)
	assert.Equal(t, float32(10), ecs.GetComponent[Position](r.Store(), b).X)
}

func TestRunSystemsNoOp(t *testing.T) {
	t.Run("no systems", func(t *testing.T) {
		r := ecs.NewRegistry()
		e := spawn(r, Position{X: 1}, Velocity{DX: 1})

		require.NoError(t, r.RunSystems())

		assert.Equal(t, []ecs.Entity{e}, r.Entities())
		assert.Equal(t, Position{X: 1}, *ecs.GetComponent[Position](r.Store(), e))
	})

	t.Run("no entities", func(t *testing.T) {
		r := ecs.NewRegistry()
		calls := 0
		ecs.RegisterSystem(r, "count", func(_ *ecs.Registry, _ ecs.Entity, c movement) error {
			calls++
			return nil
		})

		require.NoError(t, r.RunSystems())

		assert.Zero(t, calls)
		assert.Empty(t, r.Entities())
	})
}

func TestRemovedComponentStopsMatching(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Position{}, Velocity{DX: 1})

	calls := 0
	ecs.RegisterSystem(r, "movement", func(r *ecs.Registry, e ecs.Entity, c movement) error {
		calls++
		return moveSystem(r, e, c)
	})

	require.NoError(t, r.RunSystems())
	assert.Equal(t, 1, calls)

	ecs.RemoveComponent[Velocity](r.Store(), e)
	require.NoError(t, r.RunSystems())
	assert.Equal(t, 1, calls)
	assert.Equal(t, float32(1), ecs.GetComponent[Position](r.Store(), e).X)
}

func TestDestroyDuringTick(t *testing.T) {
	r := ecs.NewRegistry()
	doomed := spawn(r, Health{Current: 0})
	survivor := spawn(r, Health{Current: 10})

	ecs.RegisterSystem(r, "reaper", func(r *ecs.Registry, e ecs.Entity, c struct{ Health ecs.ReadOnly[Health] }) error {
		if c.Health.Get().Current <= 0 {
			return r.DestroyEntity(e)
		}
		return nil
	})

	var later []ecs.Entity
	ecs.RegisterSystem(r, "observer", func(_ *ecs.Registry, e ecs.Entity, c struct{ Health *Health }) error {
		later = append(later, e)
		c.Health.Current++
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, []ecs.Entity{survivor}, later)
	assert.False(t, r.Store().Alive(doomed))
	assert.Equal(t, 11, ecs.GetComponent[Health](r.Store(), survivor).Current)
}

func TestDestroyLaterEntityDuringTick(t *testing.T) {
	r := ecs.NewRegistry()
	first := spawn(r, Flag{})
	second := spawn(r, Flag{})

	var visited []ecs.Entity
	ecs.RegisterSystem(r, "kill next", func(r *ecs.Registry, e ecs.Entity, c struct{ Flag *Flag }) error {
		visited = append(visited, e)
		if e == first {
			return r.DestroyEntity(second)
		}
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, []ecs.Entity{first}, visited)
}

func TestCreatedDuringTickRunsNextTick(t *testing.T) {
	r := ecs.NewRegistry()
	spawn(r, Flag{Value: 1})

	var visited []int
	ecs.RegisterSystem(r, "spawner", func(r *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		visited = append(visited, c.Flag.Value)
		if c.Flag.Value == 1 {
			e := r.CreateEntity()
			c.Flag.Value = 0
			return ecs.AddComponent(r.Store(), e, Flag{Value: 2})
		}
		return nil
	})

	require.NoError(t, r.RunSystems())
	assert.Equal(t, []int{1}, visited)
	assert.Len(t, r.Entities(), 2)

	require.NoError(t, r.RunSystems())
	assert.Equal(t, []int{1, 0, 2}, visited)
}

func TestComponentAddedDuringTickIsVisibleToLaterSystems(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Position{})

	ecs.RegisterSystem(r, "give velocity", func(r *ecs.Registry, e ecs.Entity, c struct{ Position *Position }) error {
		return ecs.AddComponent(r.Store(), e, Velocity{DX: 2})
	})
	ecs.RegisterSystem(r, "movement", moveSystem)

	require.NoError(t, r.RunSystems())

	assert.Equal(t, float32(2), ecs.GetComponent[Position](r.Store(), e).X)
}

func TestRegisterDuringTick(t *testing.T) {
	r := ecs.NewRegistry()
	spawn(r, Flag{})
	spawn(r, Flag{})

	lateCalls := 0
	registered := false
	ecs.RegisterSystem(r, "registrar", func(r *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		if !registered {
			registered = true
			ecs.RegisterSystem(r, "late", func(_ *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
				lateCalls++
				return nil
			})
		}
		return nil
	})

	require.NoError(t, r.RunSystems())
	assert.Zero(t, lateCalls, "systems registered mid-tick wait for the next tick")
	assert.Len(t, r.Systems(), 2)

	require.NoError(t, r.RunSystems())
	assert.Equal(t, 2, lateCalls)
}

func TestDuplicateSystemsBothRun(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Position{}, Velocity{DX: 1, DY: 2})

	ecs.RegisterSystem(r, "movement", moveSystem)
	ecs.RegisterSystem(r, "movement", moveSystem)

	require.NoError(t, r.RunSystems())

	assert.Equal(t, Position{X: 2, Y: 4}, *ecs.GetComponent[Position](r.Store(), e))
}

func TestReadOnlyGetReturnsCopy(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Velocity{DX: 3})

	ecs.RegisterSystem(r, "peek", func(_ *ecs.Registry, _ ecs.Entity, c struct{ Velocity ecs.ReadOnly[Velocity] }) error {
		v := c.Velocity.Get()
		v.DX = 100
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, float32(3), ecs.GetComponent[Velocity](r.Store(), e).DX)
}

func TestEmbeddedSignatureFields(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Position{}, Health{Current: 4})

	ecs.RegisterSystem(r, "embedded", func(_ *ecs.Registry, _ ecs.Entity, c struct {
		*Position
		*Health
	}) error {
		c.X = float32(c.Current)
		return nil
	})

	require.NoError(t, r.RunSystems())

	assert.Equal(t, float32(4), ecs.GetComponent[Position](r.Store(), e).X)
}

func TestInvalidSignatures(t *testing.T) {
	r := ecs.NewRegistry()

	assert.Panics(t, func() {
		ecs.RegisterSystem(r, "not a struct", func(*ecs.Registry, ecs.Entity, *Position) error { return nil })
	})
	assert.Panics(t, func() {
		ecs.RegisterSystem(r, "value field", func(*ecs.Registry, ecs.Entity, struct{ Position Position }) error { return nil })
	})
	assert.Panics(t, func() {
		ecs.RegisterSystem(r, "duplicate", func(*ecs.Registry, ecs.Entity, struct {
			A *Position
			B ecs.ReadOnly[Position]
		}) error {
			return nil
		})
	})
	assert.Empty(t, r.Systems())
}

func TestSystemsDescribeSignatures(t *testing.T) {
	r := ecs.NewRegistry()
	ecs.RegisterSystem(r, "movement", moveSystem)
	id := ecs.RegisterSystem(r, "", func(*ecs.Registry, ecs.Entity, struct{ Health *Health }) error { return nil })

	systems := r.Systems()
	require.Len(t, systems, 2)

	assert.Equal(t, "movement", systems[0].Name)
	assert.Equal(t, "<ecs_test.Position, const ecs_test.Velocity>", systems[0].Signature.String())
	assert.False(t, systems[0].Signature[0].ReadOnly)
	assert.True(t, systems[0].Signature[1].ReadOnly)

	assert.Equal(t, id, systems[1].ID)
	assert.Equal(t, "struct { Health *ecs_test.Health }", systems[1].Name)
}

var errBoom = errors.New("boom")

func TestAbortOnError(t *testing.T) {
	r := ecs.NewRegistry()
	a := spawn(r, Flag{})
	b := spawn(r, Flag{})

	var trace []string
	ecs.RegisterSystem(r, "fails on a", func(_ *ecs.Registry, e ecs.Entity, c struct{ Flag *Flag }) error {
		trace = append(trace, fmt.Sprintf("fail:%d", e))
		if e == a {
			return errBoom
		}
		return nil
	})
	ecs.RegisterSystem(r, "after", func(_ *ecs.Registry, e ecs.Entity, c struct{ Flag *Flag }) error {
		trace = append(trace, fmt.Sprintf("after:%d", e))
		return nil
	})

	deferred := false
	r.Commands().Defer(func() { deferred = true })

	err := r.RunSystems()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	var sysErr *ecs.SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, "fails on a", sysErr.System)
	assert.Equal(t, a, sysErr.Entity)

	assert.Equal(t, []string{fmt.Sprintf("fail:%d", a)}, trace)
	assert.True(t, deferred, "commands are flushed even when the tick aborts")
	assert.True(t, r.Store().Alive(b))
}

func TestContinueOnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := ecs.NewRegistry(
		ecs.WithErrorPolicy(ecs.ContinueOnError),
		ecs.WithLogger(zap.New(core)),
	)
	a := spawn(r, Flag{})
	b := spawn(r, Flag{})

	afterCalls := 0
	ecs.RegisterSystem(r, "always fails", func(_ *ecs.Registry, e ecs.Entity, c struct{ Flag *Flag }) error {
		return fmt.Errorf("entity %d: %w", e, errBoom)
	})
	ecs.RegisterSystem(r, "after", func(_ *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		afterCalls++
		return nil
	})

	err := r.RunSystems()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 2, afterCalls)

	entries := logs.FilterMessage("system failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(a), entries[0].ContextMap()["entity"])
	assert.Equal(t, uint64(b), entries[1].ContextMap()["entity"])
	assert.Equal(t, "always fails", entries[0].ContextMap()["system"])
	assert.Equal(t, r.ID().String(), entries[0].ContextMap()["registry"])
}

func TestStoreErrorsReachCaller(t *testing.T) {
	r := ecs.NewRegistry()
	e := spawn(r, Flag{})
	ghost := r.CreateEntity()
	require.NoError(t, r.DestroyEntity(ghost))

	ecs.RegisterSystem(r, "touch ghost", func(r *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		return ecs.AddComponent(r.Store(), ghost, Flag{})
	})

	err := r.RunSystems()
	assert.ErrorIs(t, err, ecs.ErrUnknownEntity)

	var sysErr *ecs.SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, e, sysErr.Entity)
}

func TestTickCounterAndRunningFlag(t *testing.T) {
	r := ecs.NewRegistry()
	spawn(r, Flag{})

	var runningInside bool
	ecs.RegisterSystem(r, "observe running", func(r *ecs.Registry, _ ecs.Entity, c struct{ Flag *Flag }) error {
		runningInside = r.Running()
		return nil
	})

	assert.Zero(t, r.Tick())
	require.NoError(t, r.RunSystems())
	require.NoError(t, r.RunSystems())

	assert.Equal(t, uint64(2), r.Tick())
	assert.True(t, runningInside)
	assert.False(t, r.Running())
}

func TestWithStoreSharesState(t *testing.T) {
	store := ecs.NewStore()
	e := store.CreateEntity()
	require.NoError(t, ecs.AddComponent(store, e, Position{}))
	require.NoError(t, ecs.AddComponent(store, e, Velocity{DX: 1}))

	r := ecs.NewRegistry(ecs.WithStore(store), ecs.WithCapacity(16))
	ecs.RegisterSystem(r, "movement", moveSystem)
	require.NoError(t, r.RunSystems())

	assert.Same(t, store, r.Store())
	assert.Equal(t, float32(1), ecs.GetComponent[Position](store, e).X)
}

func TestEmptySignatureMatchesEveryEntity(t *testing.T) {
	r := ecs.NewRegistry()
	a := spawn(r)
	b := spawn(r, Position{})
	c := spawn(r, Flag{}, Health{})

	var visited []ecs.Entity
	id := ecs.RegisterSystem(r, "every entity", func(_ *ecs.Registry, e ecs.Entity, _ struct{}) error {
		visited = append(visited, e)
		return nil
	})

	require.NoError(t, r.RunSystems())
	assert.Equal(t, []ecs.Entity{a, b, c}, visited)
	assert.Equal(t, "<>", r.Systems()[id].Signature.String())
}

func TestRunSystemsRejectsReentry(t *testing.T) {
	r := ecs.NewRegistry()
	a := spawn(r, Flag{})
	b := spawn(r, Flag{})
	c := spawn(r, Flag{})

	var visited []ecs.Entity
	var nestedErr error
	ecs.RegisterSystem(r, "nested tick", func(r *ecs.Registry, e ecs.Entity, _ struct{ Flag *Flag }) error {
		visited = append(visited, e)
		if e == a {
			require.NoError(t, r.DestroyEntity(b))
			nestedErr = r.RunSystems()
		}
		return nil
	})

	require.NoError(t, r.RunSystems())
	assert.ErrorIs(t, nestedErr, ecs.ErrTickRunning)
	assert.Equal(t, []ecs.Entity{a, c}, visited, "each entity runs once per tick")
	assert.Equal(t, uint64(1), r.Tick())
	assert.False(t, r.Running())

	visited = nil
	require.NoError(t, r.RunSystems())
	assert.Equal(t, []ecs.Entity{a, c}, visited)
}

func TestRunSystemsSteadyStateAllocations(t *testing.T) {
	r := ecs.NewRegistry(ecs.WithCapacity(100))
	for i := 0; i < 100; i++ {
		spawn(r, Position{}, Velocity{DX: 1, DY: 2})
	}
	ecs.RegisterSystem(r, "movement", moveSystem)
	require.NoError(t, r.RunSystems())

	allocs := testing.AllocsPerRun(50, func() {
		_ = r.RunSystems()
	})
	assert.Zero(t, allocs)
}
