package agrifun

import (
	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/types"
)

// Entity is a thin object-oriented façade over the entity manager for call
// sites that hold one entity at a time. It carries no state of its own
// beyond the ID; every method delegates to the manager.
type Entity struct {
	id    types.EntityID
	world *World
}

// Entity wraps an existing entity ID. The ID is not validated; Exists
// reports whether it refers to a live entity.
func (w *World) Entity(id types.EntityID) Entity {
	return Entity{id: id, world: w}
}

// SpawnEntity creates a new entity seeded from the given component data
// mapping and returns its façade.
func (w *World) SpawnEntity(data map[string]any) (Entity, error) {
	id, err := w.entityStore.CreateEntity(data)
	if err != nil {
		return Entity{}, err
	}
	return Entity{id: id, world: w}, nil
}

func (e Entity) ID() types.EntityID {
	return e.id
}

func (e Entity) Exists() bool {
	return e.world.entityStore.EntityExists(e.id)
}

func (e Entity) Get(typeName string) *component.Instance {
	return e.world.entityStore.GetComponent(e.id, typeName)
}

func (e Entity) Add(typeName string, data any) error {
	return e.world.entityStore.AddComponent(e.id, typeName, data)
}

func (e Entity) Remove(typeName string) bool {
	return e.world.entityStore.RemoveComponent(e.id, typeName)
}

func (e Entity) Update(typeName string, updates map[string]any) bool {
	return e.world.entityStore.UpdateComponent(e.id, typeName, updates)
}

func (e Entity) Has(typeName string) bool {
	return e.world.entityStore.HasComponent(e.id, typeName)
}

func (e Entity) Components() []string {
	return e.world.entityStore.ComponentTypes(e.id)
}

func (e Entity) Serialize() (types.EntityRecord, error) {
	return e.world.entityStore.SerializeEntity(e.id)
}

func (e Entity) Destroy() bool {
	return e.world.entityStore.DestroyEntity(e.id)
}
