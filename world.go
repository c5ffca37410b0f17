// Package agrifun wires the ECS core of the AgriFun farming simulation:
// the component registry, the entity manager, the event hub, telemetry,
// and the optional redis snapshot store, driven one tick at a time by the
// embedding game loop.
package agrifun

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/cql"
	"github.com/agrifun/agrifun/events"
	"github.com/agrifun/agrifun/state"
	"github.com/agrifun/agrifun/statsd"
	redisstore "github.com/agrifun/agrifun/storage/redis"
	"github.com/agrifun/agrifun/types"
)

// System is one gameplay system: a function run once per tick against the
// world. Systems read and mutate entity state through the entity manager.
type System func(w *World) error

type registeredSystem struct {
	name string
	fn   System
}

// World owns one simulation's ECS state. Construct it once at process
// start and thread it through every gameplay system; there is no global
// instance.
type World struct {
	namespace string

	registry    *component.Registry
	entityStore *state.Manager
	eventHub    *events.Hub
	snapshots   *redisstore.Storage

	systems []registeredSystem
	tick    atomic.Uint64
}

// NewWorld creates a world from environment configuration plus options.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load config to start world")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.StatsdAddress != "" {
		if err := statsd.Init(cfg.StatsdAddress, []string{"namespace:" + cfg.Namespace}); err != nil {
			log.Warn().Err(err).Msg("failed to initialize statsd client, metrics are disabled")
		}
	}

	registry := component.NewRegistry()
	eventHub := events.NewHub()

	world := &World{
		namespace:   cfg.Namespace,
		registry:    registry,
		entityStore: state.NewManager(registry, eventHub),
		eventHub:    eventHub,
	}

	if cfg.RedisAddress != "" {
		store := redisstore.NewRedisStorage(redisstore.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
		}, cfg.Namespace)
		world.snapshots = &store
	}

	for _, opt := range opts {
		opt(world)
	}

	log.Info().Str("namespace", cfg.Namespace).Msg("created agrifun world")
	return world, nil
}

func (w *World) Namespace() string {
	return w.namespace
}

// Registry returns the component registry. Gameplay modules register their
// component types here before the first tick.
func (w *World) Registry() *component.Registry {
	return w.registry
}

// EntityManager returns the entity store, the public ECS surface.
func (w *World) EntityManager() *state.Manager {
	return w.entityStore
}

// Events returns the event hub the entity manager publishes to.
func (w *World) Events() *events.Hub {
	return w.eventHub
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() uint64 {
	return w.tick.Load()
}

// RegisterSystem adds a system to the per-tick run order.
func (w *World) RegisterSystem(name string, fn System) {
	w.systems = append(w.systems, registeredSystem{name: name, fn: fn})
	log.Debug().Str("system", name).Msg("registered system")
}

// Tick runs every registered system in registration order, then flushes
// queued events to subscribers and clears the modified-entity and
// modified-component tracking sets.
func (w *World) Tick() error {
	start := time.Now()
	for _, sys := range w.systems {
		sysStart := time.Now()
		if err := sys.fn(w); err != nil {
			return eris.Wrapf(err, "system %q failed", sys.name)
		}
		statsd.EmitTickStat(sysStart, sys.name)
	}

	w.eventHub.FlushEvents()
	w.entityStore.ClearModifiedFlags()

	statsd.EmitTickStat(start, "full_tick")
	statsd.EmitEntityCount(w.entityStore.EntityCount())
	statsd.EmitArchetypeCount(w.entityStore.ArchetypeCount())

	w.tick.Add(1)
	return nil
}

// Query returns every entity carrying all the given component types.
func (w *World) Query(required ...string) []types.EntityID {
	return w.entityStore.Query(required...)
}

// QueryString evaluates a CQL query such as "CONTAINS(transform, employee)"
// against the current entity state. Component names are validated against
// the registry at parse time.
func (w *World) QueryString(text string) ([]types.EntityID, error) {
	f, err := cql.Parse(text, w.resolveComponent)
	if err != nil {
		return nil, err
	}
	return w.entityStore.QueryFilter(f), nil
}

func (w *World) resolveComponent(name string) (string, error) {
	if w.registry.Get(name) == nil {
		return "", eris.Wrapf(state.ErrComponentNotRegistered, "component %q", name)
	}
	return name, nil
}

// Save snapshots every live entity to the snapshot store.
func (w *World) Save(ctx context.Context) error {
	if w.snapshots == nil {
		return eris.New("no snapshot storage configured")
	}
	recs, err := w.entityStore.SerializeAll()
	if err != nil {
		return err
	}
	if err := w.snapshots.Clear(ctx); err != nil {
		return err
	}
	return w.snapshots.SaveSnapshot(ctx, recs)
}

// Load restores every entity from the snapshot store into the world.
func (w *World) Load(ctx context.Context) error {
	if w.snapshots == nil {
		return eris.New("no snapshot storage configured")
	}
	recs, err := w.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := w.entityStore.DeserializeEntity(rec); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown tears the world down: the entity manager emits its final
// summary event, the hub delivers everything still queued, and the
// snapshot store connection is closed.
func (w *World) Shutdown() {
	w.entityStore.Shutdown()
	w.eventHub.FlushEvents()
	w.eventHub.Shutdown()
	if w.snapshots != nil {
		if err := w.snapshots.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close snapshot storage")
		}
	}
	log.Info().Str("namespace", w.namespace).Msg("agrifun world shut down")
}
