package state

import (
	"testing"

	"github.com/agrifun/agrifun/assert"
	"github.com/agrifun/agrifun/component"
	"github.com/agrifun/agrifun/filter"
	"github.com/agrifun/agrifun/types"
)

type soil struct {
	Moisture float64 `json:"moisture"`
}

func (soil) Category() types.Category { return types.CategoryPhysical }

func componentSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func TestArchetypeKeyIsOrderIndependent(t *testing.T) {
	a := archetypeKey(componentSet("transform", "employee", "brain"))
	b := archetypeKey(componentSet("brain", "transform", "employee"))
	assert.Equal(t, a, b)
	assert.Equal(t, "brain|employee|transform", a)
	assert.Equal(t, "", archetypeKey(nil))
}

func TestArchetypeMembershipAndStorage(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[soil](registry)
	inst, err := meta.NewInstance(map[string]any{"moisture": 0.4})
	assert.NilError(t, err)

	arch := newArchetype(componentSet("soil"))
	assert.Equal(t, "soil", arch.Key())
	assert.DeepEqual(t, []string{"soil"}, arch.Components())

	id := types.NewEntityID()
	arch.AddEntity(id)
	arch.SetComponent(id, inst)

	assert.Equal(t, 1, arch.Len())
	assert.True(t, arch.Contains(id))
	assert.Equal(t, inst, arch.Component(id, "soil"))
	assert.Contains(t, arch.Entities(), id)
}

func TestArchetypeRemoveEntityPurgesStorage(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[soil](registry)
	inst, err := meta.NewInstance(nil)
	assert.NilError(t, err)

	arch := newArchetype(componentSet("soil"))
	id := types.NewEntityID()
	arch.AddEntity(id)
	arch.SetComponent(id, inst)

	arch.RemoveEntity(id)
	assert.Equal(t, 0, arch.Len())
	assert.False(t, arch.Contains(id))
	assert.Nil(t, arch.Component(id, "soil"))
}

func TestArchetypeIgnoresComponentsOutsideItsSet(t *testing.T) {
	registry := component.NewRegistry()
	meta := component.MustRegister[soil](registry)
	inst, err := meta.NewInstance(nil)
	assert.NilError(t, err)

	arch := newArchetype(componentSet("transform"))
	id := types.NewEntityID()
	arch.AddEntity(id)
	arch.SetComponent(id, inst)
	assert.Nil(t, arch.Component(id, "soil"))
}

func TestArchetypeMatchesQuerySupersets(t *testing.T) {
	arch := newArchetype(componentSet("soil", "transform"))

	assert.True(t, arch.MatchesQuery(nil))
	assert.True(t, arch.MatchesQuery([]string{"soil"}))
	assert.True(t, arch.MatchesQuery([]string{"soil", "transform"}))
	assert.False(t, arch.MatchesQuery([]string{"soil", "brain"}))
}

func TestArchetypeMatchesFilters(t *testing.T) {
	arch := newArchetype(componentSet("soil", "transform"))

	assert.True(t, arch.Matches(filter.Contains("soil")))
	assert.True(t, arch.Matches(filter.Exact("soil", "transform")))
	assert.False(t, arch.Matches(filter.Exact("soil")))
	assert.True(t, arch.Matches(filter.Not(filter.Contains("brain"))))
}
