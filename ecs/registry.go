package ecs

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrorPolicy decides what RunSystems does when a system callback returns an error.
type ErrorPolicy int

const (
	// AbortOnError stops the tick at the first callback error and returns it.
	AbortOnError ErrorPolicy = iota
	// ContinueOnError logs each callback error, keeps running the tick and
	// returns every error combined once the tick completes.
	ContinueOnError
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case ContinueOnError:
		return "continue"
	default:
		return "unknown"
	}
}

// Registry owns a Store and the ordered list of systems run against it every tick.
type Registry struct {
	id       uuid.UUID
	store    *Store
	systems  []*system
	commands *Commands

	logger       *zap.Logger
	errorPolicy  ErrorPolicy
	collectStats bool

	tick     uint64
	running  bool
	snapshot []Entity
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration and error reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithErrorPolicy sets how callback errors are handled. The default is AbortOnError.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(r *Registry) {
		r.errorPolicy = policy
	}
}

// WithStats enables per-system timing statistics.
func WithStats(enabled bool) Option {
	return func(r *Registry) {
		r.collectStats = enabled
	}
}

// WithStore makes the registry dispatch over an existing store.
func WithStore(store *Store) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithCapacity presizes entity bookkeeping for the expected number of entities.
func WithCapacity(entities int) Option {
	return func(r *Registry) {
		if r.store == nil {
			r.store = newStoreWithCapacity(entities)
		}
		r.snapshot = make([]Entity, 0, entities)
	}
}

// NewRegistry creates a registry with an empty store and no systems.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		id:       uuid.New(),
		commands: newCommands(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = NewStore()
	}
	r.logger = r.logger.With(zap.Stringer("registry", r.id))
	return r
}

// ID returns the registry's instance id, used to tell registries apart in logs.
func (r *Registry) ID() uuid.UUID {
	return r.id
}

// Store returns the entity/component store owned by the registry.
func (r *Registry) Store() *Store {
	return r.store
}

// Commands returns the buffer of operations applied at the end of the current tick.
func (r *Registry) Commands() *Commands {
	return r.commands
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// ErrorPolicy returns how RunSystems treats failing system callbacks.
func (r *Registry) ErrorPolicy() ErrorPolicy {
	return r.errorPolicy
}

// Tick returns the number of RunSystems calls started so far.
func (r *Registry) Tick() uint64 {
	return r.tick
}

// Running reports whether a tick is in progress.
func (r *Registry) Running() bool {
	return r.running
}

// CreateEntity allocates a new entity in the registry's store.
func (r *Registry) CreateEntity() Entity {
	return r.store.CreateEntity()
}

// DestroyEntity removes e and its components from the registry's store.
func (r *Registry) DestroyEntity(e Entity) error {
	return r.store.DestroyEntity(e)
}

// Entities returns the live entities in creation order.
func (r *Registry) Entities() []Entity {
	return r.store.Entities()
}

// RunSystems runs every registered system against every entity that matches its signature.
//
// Iteration is entity-major: each entity runs through all systems, in registration
// order, before the next entity starts. The entity list and system list are captured
// when the tick starts, so entities created and systems registered during the tick
// are first seen on the next tick. Entities destroyed during the tick are skipped by
// every later system, and component changes are visible to the presence checks of
// later systems immediately. Deferred commands are flushed when the tick ends.
// Calling RunSystems from inside a system returns ErrTickRunning.
func (r *Registry) RunSystems() error {
	if r.running {
		return errors.Wrapf(ErrTickRunning, "tick %d", r.tick)
	}
	r.tick++
	r.running = true
	defer func() { r.running = false }()

	r.snapshot = r.store.appendEntities(r.snapshot[:0])
	systems := r.systems

	if r.collectStats {
		for _, sys := range systems {
			sys.stats.beginTick()
		}
	}

	var errs error
	for _, e := range r.snapshot {
		for _, sys := range systems {
			if !r.store.Alive(e) {
				break
			}
			if !sys.layout.matches(r.store, e) {
				continue
			}

			err := r.invoke(sys, e)
			if err == nil {
				continue
			}

			err = &SystemError{System: sys.name, Entity: e, Err: err}
			if r.errorPolicy == AbortOnError {
				r.endTick(systems)
				return multierr.Append(err, r.commands.Flush(r))
			}
			r.logger.Warn("system failed",
				zapSystem(sys),
				zap.Uint64("entity", uint64(e)),
				zap.Uint64("tick", r.tick),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	r.endTick(systems)
	return multierr.Append(errs, r.commands.Flush(r))
}

func (r *Registry) invoke(sys *system, e Entity) error {
	if !r.collectStats {
		return sys.invoke(r, e)
	}

	start := time.Now()
	err := sys.invoke(r, e)
	sys.stats.record(time.Since(start))
	return err
}

func (r *Registry) endTick(systems []*system) {
	if !r.collectStats {
		return
	}
	for _, sys := range systems {
		sys.stats.endTick()
	}
}

func zapSystem(sys *system) zap.Field {
	return zap.String("system", sys.name)
}

func zapSignature(sig Signature) zap.Field {
	return zap.Stringer("signature", sig)
}
