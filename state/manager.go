package state

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agrifun/agrifun/codec"
	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/events"
	"github.com/agrifun/agrifun/filter"
	ecslog "github.com/agrifun/agrifun/log"
	"github.com/agrifun/agrifun/types"
)

var (
	ErrEntityIDInUse          = eris.New("entity id already in use")
	ErrEntityNotFound         = eris.New("entity does not exist")
	ErrComponentNotRegistered = eris.New("component type is not registered")
)

// managerSource identifies this manager as the source of published events.
const managerSource = "entity_manager"

// Publisher is the event bus collaborator the manager emits notifications
// through. Emission is synchronous; the manager never awaits a response.
type Publisher interface {
	Publish(topic string, payload map[string]any, priority events.Priority, source string) error
}

// NopPublisher drops every event. Used when no event bus is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(string, map[string]any, events.Priority, string) error {
	return nil
}

// Manager is the single source of truth for entity and component state:
// entity lifecycle, component attach/detach, archetype transitions, and
// queries. It is driven by one simulation goroutine; concurrent mutation
// requires external synchronization.
type Manager struct {
	registry  *component.Registry
	publisher Publisher

	entities   map[types.EntityID]map[string]*component.Instance
	entityArch map[types.EntityID]*Archetype
	archetypes map[string]*Archetype

	// typeIndex mirrors archetype storage per component type so
	// EntitiesWithComponent is a direct index scan.
	typeIndex map[string]map[types.EntityID]*component.Instance

	modifiedEntities map[types.EntityID]struct{}
	modifiedTypes    map[string]struct{}

	closed bool
}

// NewManager creates an entity manager over the given registry. A nil
// publisher disables notifications.
func NewManager(registry *component.Registry, publisher Publisher) *Manager {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Manager{
		registry:         registry,
		publisher:        publisher,
		entities:         make(map[types.EntityID]map[string]*component.Instance),
		entityArch:       make(map[types.EntityID]*Archetype),
		archetypes:       make(map[string]*Archetype),
		typeIndex:        make(map[string]map[types.EntityID]*component.Instance),
		modifiedEntities: make(map[types.EntityID]struct{}),
		modifiedTypes:    make(map[string]struct{}),
	}
}

// Registry returns the component registry this manager attaches from.
func (m *Manager) Registry() *component.Registry {
	return m.registry
}

// CreateEntity allocates a fresh entity ID, attaches the components in the
// given data mapping (component-type name to either a field mapping or a
// pre-built payload), and returns the new ID.
func (m *Manager) CreateEntity(data map[string]any) (types.EntityID, error) {
	return m.CreateEntityWithID(types.NewEntityID(), data)
}

// CreateEntityWithID is CreateEntity with an explicit ID. An empty ID is
// replaced with a fresh one; an ID already in use is an error, since
// aliasing two logical entities would corrupt archetype bookkeeping.
func (m *Manager) CreateEntityWithID(id types.EntityID, data map[string]any) (types.EntityID, error) {
	if id == types.BadID {
		id = types.NewEntityID()
	}
	if _, ok := m.entities[id]; ok {
		return types.BadID, eris.Wrapf(ErrEntityIDInUse, "entity %q", id)
	}

	// Build every instance before touching any state so a bad component
	// mapping leaves no partially created entity behind.
	instances := make(map[string]*component.Instance, len(data))
	for name, value := range data {
		inst, err := m.buildInstance(name, value)
		if err != nil {
			return types.BadID, err
		}
		instances[name] = inst
	}

	m.entities[id] = instances
	componentSet := make(map[string]struct{}, len(instances))
	for name := range instances {
		componentSet[name] = struct{}{}
	}
	arch := m.moveEntity(id, componentSet)

	names := make([]string, 0, len(instances))
	for name, inst := range instances {
		m.indexComponent(id, inst)
		m.markModified(id, name)
		names = append(names, name)
	}
	sort.Strings(names)

	archKey := ""
	if arch != nil {
		archKey = arch.Key()
	}
	ecslog.Entity(&log.Logger, zerolog.DebugLevel, id, archKey, names)

	m.publish(events.TopicEntityCreated, map[string]any{
		"entity_id":  string(id),
		"components": names,
	}, events.PriorityNormal)
	return id, nil
}

// DestroyEntity removes the entity, every attached component, and its
// archetype membership. Destroying an unknown or already-destroyed entity
// is a no-op returning false; repeated calls emit no duplicate events.
func (m *Manager) DestroyEntity(id types.EntityID) bool {
	instances, ok := m.entities[id]
	if !ok {
		return false
	}
	if arch := m.entityArch[id]; arch != nil {
		arch.RemoveEntity(id)
		delete(m.entityArch, id)
	}
	for name := range instances {
		delete(m.typeIndex[name], id)
		m.markModified(id, name)
	}
	delete(m.entities, id)

	m.publish(events.TopicEntityDestroyed, map[string]any{
		"entity_id": string(id),
	}, events.PriorityNormal)
	return true
}

// AddComponent constructs (or adopts) a component and attaches it to the
// entity, migrating the entity to the archetype matching its widened
// component set. Attaching a type the entity already has replaces the old
// instance in place; the archetype is unchanged in that case.
func (m *Manager) AddComponent(id types.EntityID, typeName string, data any) error {
	instances, ok := m.entities[id]
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "entity %q", id)
	}
	inst, err := m.buildInstance(typeName, data)
	if err != nil {
		return err
	}

	instances[typeName] = inst
	componentSet := make(map[string]struct{}, len(instances))
	for name := range instances {
		componentSet[name] = struct{}{}
	}
	m.moveEntity(id, componentSet)
	m.indexComponent(id, inst)
	m.markModified(id, typeName)

	snapshot, err := inst.Snapshot()
	if err != nil {
		log.Warn().Err(err).Str("component", typeName).Msg("failed to snapshot component for event payload")
	}
	m.publish(events.TopicComponentAdded, map[string]any{
		"entity_id":      string(id),
		"component_type": typeName,
		"data":           snapshot,
	}, events.PriorityNormal)
	return nil
}

// RemoveComponent detaches the component and migrates the entity to the
// archetype matching its narrowed set. Removing a component the entity
// does not have is a no-op returning false.
func (m *Manager) RemoveComponent(id types.EntityID, typeName string) bool {
	instances, ok := m.entities[id]
	if !ok {
		return false
	}
	if _, ok := instances[typeName]; !ok {
		return false
	}
	delete(instances, typeName)
	delete(m.typeIndex[typeName], id)

	componentSet := make(map[string]struct{}, len(instances))
	for name := range instances {
		componentSet[name] = struct{}{}
	}
	m.moveEntity(id, componentSet)
	m.markModified(id, typeName)

	m.publish(events.TopicComponentRemoved, map[string]any{
		"entity_id":      string(id),
		"component_type": typeName,
	}, events.PriorityNormal)
	return true
}

// GetComponent returns the attached instance, or nil when the entity or
// the component is not present. Probing for absent state is routine in
// gameplay systems and never an error.
func (m *Manager) GetComponent(id types.EntityID, typeName string) *component.Instance {
	return m.entities[id][typeName]
}

// UpdateComponent applies the given field updates to the component. Field
// names the component does not declare are silently ignored; the version
// and modification time are bumped regardless. Returns false without
// side effects when the entity or component does not exist.
func (m *Manager) UpdateComponent(id types.EntityID, typeName string, updates map[string]any) bool {
	inst := m.GetComponent(id, typeName)
	if inst == nil {
		return false
	}
	applied := inst.Update(updates)
	sort.Strings(applied)
	m.markModified(id, typeName)

	// Only field names travel in the event; values can be large.
	m.publish(events.TopicComponentUpdated, map[string]any{
		"entity_id":      string(id),
		"component_type": typeName,
		"fields":         applied,
	}, events.PriorityNormal)
	return true
}

// Query returns every entity whose component set is a superset of the
// required types. No cross-entity ordering is guaranteed; each matching
// entity appears exactly once.
func (m *Manager) Query(required ...string) []types.EntityID {
	return m.QueryFilter(filter.Contains(required...))
}

// QueryFilter is Query over an arbitrary component filter.
func (m *Manager) QueryFilter(f filter.ComponentFilter) []types.EntityID {
	var ids []types.EntityID
	for _, arch := range m.archetypes {
		if !arch.Matches(f) {
			continue
		}
		ids = append(ids, arch.Entities()...)
	}
	return ids
}

// EntitiesWithComponent returns every entity carrying the given component
// type via a direct scan of the per-type index.
func (m *Manager) EntitiesWithComponent(typeName string) []types.EntityID {
	slots := m.typeIndex[typeName]
	ids := make([]types.EntityID, 0, len(slots))
	for id := range slots {
		ids = append(ids, id)
	}
	return ids
}

// HasComponent reports whether the entity currently carries the component.
func (m *Manager) HasComponent(id types.EntityID, typeName string) bool {
	return m.GetComponent(id, typeName) != nil
}

// ComponentTypes returns a sorted snapshot of the entity's component-type
// set, or nil for an unknown entity.
func (m *Manager) ComponentTypes(id types.EntityID) []string {
	instances, ok := m.entities[id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntityExists reports whether the entity is live.
func (m *Manager) EntityExists(id types.EntityID) bool {
	_, ok := m.entities[id]
	return ok
}

// EntityCount returns the number of live entities.
func (m *Manager) EntityCount() int {
	return len(m.entities)
}

// ArchetypeCount returns the number of archetypes created so far. Empty
// archetypes are never pruned, so this only grows.
func (m *Manager) ArchetypeCount() int {
	return len(m.archetypes)
}

// CurrentArchetype returns the archetype the entity belongs to, or nil
// when the entity is unknown or its component set is empty.
func (m *Manager) CurrentArchetype(id types.EntityID) *Archetype {
	return m.entityArch[id]
}

// SerializeEntity produces the plain nested-mapping representation of the
// entity consumed by the save/load collaborator.
func (m *Manager) SerializeEntity(id types.EntityID) (types.EntityRecord, error) {
	instances, ok := m.entities[id]
	if !ok {
		return types.EntityRecord{}, eris.Wrapf(ErrEntityNotFound, "entity %q", id)
	}
	rec := types.EntityRecord{
		EntityID:   id,
		Components: make(map[string]json.RawMessage, len(instances)),
	}
	for name, inst := range instances {
		bz, err := inst.Encode()
		if err != nil {
			return types.EntityRecord{}, eris.Wrapf(err, "failed to serialize component %q of entity %q", name, id)
		}
		rec.Components[name] = bz
	}
	return rec, nil
}

// SerializeAll serializes every live entity.
func (m *Manager) SerializeAll() ([]types.EntityRecord, error) {
	recs := make([]types.EntityRecord, 0, len(m.entities))
	for id := range m.entities {
		rec, err := m.SerializeEntity(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// DeserializeEntity creates an entity from a serialized record, reusing
// the record's ID when present and generating a fresh one otherwise.
func (m *Manager) DeserializeEntity(rec types.EntityRecord) (types.EntityID, error) {
	data := make(map[string]any, len(rec.Components))
	for name, raw := range rec.Components {
		fields, err := codec.Decode[map[string]any](raw)
		if err != nil {
			return types.BadID, eris.Wrapf(err, "failed to deserialize component %q", name)
		}
		data[name] = fields
	}
	return m.CreateEntityWithID(rec.EntityID, data)
}

// ModifiedEntities returns the entities touched since the last flag clear.
func (m *Manager) ModifiedEntities() []types.EntityID {
	ids := make([]types.EntityID, 0, len(m.modifiedEntities))
	for id := range m.modifiedEntities {
		ids = append(ids, id)
	}
	return ids
}

// ModifiedComponentTypes returns the sorted component types touched since
// the last flag clear.
func (m *Manager) ModifiedComponentTypes() []string {
	names := make([]string, 0, len(m.modifiedTypes))
	for name := range m.modifiedTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearModifiedFlags resets change tracking. The simulation scheduler
// calls this once per tick after all systems have consumed the change
// lists.
func (m *Manager) ClearModifiedFlags() {
	clear(m.modifiedEntities)
	clear(m.modifiedTypes)
}

// Shutdown emits a final summary notification and clears all state. It is
// intended to be called exactly once at teardown; a second call is a
// logged no-op.
func (m *Manager) Shutdown() {
	if m.closed {
		log.Warn().Msg("entity manager already shut down")
		return
	}
	m.closed = true
	m.publish(events.TopicEntityManagerShutdown, map[string]any{
		"entities":        m.EntityCount(),
		"archetypes":      m.ArchetypeCount(),
		"component_types": m.registry.Len(),
	}, events.PriorityHigh)

	clear(m.entities)
	clear(m.entityArch)
	clear(m.archetypes)
	clear(m.typeIndex)
	m.ClearModifiedFlags()
}

// buildInstance resolves the type name against the registry and turns the
// given value (nil, a field mapping, or a pre-built payload) into a stored
// instance.
func (m *Manager) buildInstance(typeName string, value any) (*component.Instance, error) {
	meta := m.registry.Get(typeName)
	if meta == nil {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q", typeName)
	}
	switch v := value.(type) {
	case nil:
		return meta.NewInstance(nil)
	case map[string]any:
		return meta.NewInstance(v)
	case types.Component:
		return meta.WrapInstance(v)
	default:
		return nil, eris.Errorf(
			"component %q data must be a field mapping or a component payload, got %T", typeName, value)
	}
}

// moveEntity implements the archetype transition: remove the entity from
// its current archetype (purging its slots there), then look up or lazily
// create the archetype keyed by the new set and add the entity to it. An
// empty set leaves the entity with no archetype membership at all, a
// valid degenerate state.
func (m *Manager) moveEntity(id types.EntityID, componentSet map[string]struct{}) *Archetype {
	old := m.entityArch[id]
	key := archetypeKey(componentSet)
	if old != nil && old.Key() == key {
		return old
	}
	if old != nil {
		old.RemoveEntity(id)
	}
	if len(componentSet) == 0 {
		delete(m.entityArch, id)
		return nil
	}
	arch, ok := m.archetypes[key]
	if !ok {
		arch = newArchetype(componentSet)
		m.archetypes[key] = arch
		log.Debug().Str("archetype", key).Msg("created")
	}
	arch.AddEntity(id)
	for name, inst := range m.entities[id] {
		if _, ok := componentSet[name]; ok {
			arch.SetComponent(id, inst)
		}
	}
	m.entityArch[id] = arch
	return arch
}

// indexComponent records the instance in the per-type index and in the
// entity's current archetype slot.
func (m *Manager) indexComponent(id types.EntityID, inst *component.Instance) {
	name := inst.TypeName()
	slots, ok := m.typeIndex[name]
	if !ok {
		slots = make(map[types.EntityID]*component.Instance)
		m.typeIndex[name] = slots
	}
	slots[id] = inst
	if arch := m.entityArch[id]; arch != nil {
		arch.SetComponent(id, inst)
	}
}

func (m *Manager) markModified(id types.EntityID, typeName string) {
	m.modifiedEntities[id] = struct{}{}
	m.modifiedTypes[typeName] = struct{}{}
}

func (m *Manager) publish(topic string, payload map[string]any, priority events.Priority) {
	if err := m.publisher.Publish(topic, payload, priority, managerSource); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish entity manager event")
	}
}
