package state

import (
	"sort"
	"strings"

	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/filter"
	"github.com/agrifun/agrifun/types"
)

// Archetype groups the entities that share one exact component-type set.
// The set is the archetype's identity and never changes after creation;
// entities migrate between archetypes as components are added or removed.
type Archetype struct {
	key        string
	components map[string]struct{}
	names      []string
	entities   map[types.EntityID]struct{}
	storage    map[string]map[types.EntityID]*component.Instance
}

// archetypeKey normalizes a component-type set into a stable map key:
// the sorted names joined with "|".
func archetypeKey(componentSet map[string]struct{}) string {
	names := make([]string, 0, len(componentSet))
	for name := range componentSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func newArchetype(componentSet map[string]struct{}) *Archetype {
	components := make(map[string]struct{}, len(componentSet))
	names := make([]string, 0, len(componentSet))
	storage := make(map[string]map[types.EntityID]*component.Instance, len(componentSet))
	for name := range componentSet {
		components[name] = struct{}{}
		names = append(names, name)
		storage[name] = make(map[types.EntityID]*component.Instance)
	}
	sort.Strings(names)
	return &Archetype{
		key:        strings.Join(names, "|"),
		components: components,
		names:      names,
		entities:   make(map[types.EntityID]struct{}),
		storage:    storage,
	}
}

// Key returns the normalized identity key for this archetype.
func (a *Archetype) Key() string {
	return a.key
}

// Components returns the sorted component-type names of this archetype.
func (a *Archetype) Components() []string {
	return a.names
}

// Len returns the number of entities currently in this archetype.
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Entities returns the IDs of every entity currently in this archetype.
func (a *Archetype) Entities() []types.EntityID {
	ids := make([]types.EntityID, 0, len(a.entities))
	for id := range a.entities {
		ids = append(ids, id)
	}
	return ids
}

// AddEntity records the entity as a member. The caller is responsible for
// populating the per-type storage slots afterwards.
func (a *Archetype) AddEntity(id types.EntityID) {
	a.entities[id] = struct{}{}
}

// RemoveEntity removes the entity's membership and purges its slot from
// every per-type storage map so no component data leaks behind a migration.
func (a *Archetype) RemoveEntity(id types.EntityID) {
	delete(a.entities, id)
	for _, slots := range a.storage {
		delete(slots, id)
	}
}

// Contains reports whether the entity is currently a member.
func (a *Archetype) Contains(id types.EntityID) bool {
	_, ok := a.entities[id]
	return ok
}

// SetComponent stores the given instance in the entity's slot for its type.
// Types outside this archetype's set are ignored.
func (a *Archetype) SetComponent(id types.EntityID, inst *component.Instance) {
	slots, ok := a.storage[inst.TypeName()]
	if !ok {
		return
	}
	slots[id] = inst
}

// Component returns the stored instance for (typeName, id), or nil.
func (a *Archetype) Component(id types.EntityID, typeName string) *component.Instance {
	return a.storage[typeName][id]
}

// MatchesQuery reports whether every required component type is present in
// this archetype's set. Queries are superset matches: an archetype carrying
// additional types still matches.
func (a *Archetype) MatchesQuery(required []string) bool {
	for _, name := range required {
		if _, ok := a.components[name]; !ok {
			return false
		}
	}
	return true
}

// Matches reports whether this archetype's component set passes the filter.
func (a *Archetype) Matches(f filter.ComponentFilter) bool {
	return f.MatchesComponents(a.names)
}
