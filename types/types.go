package types

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// EntityID uniquely identifies one entity for the lifetime of a world.
// IDs are opaque strings; NewEntityID returns a random UUID.
type EntityID string

// BadID is returned by lookups that fail to find an entity.
const BadID = EntityID("")

// NewEntityID allocates a fresh random entity ID.
func NewEntityID() EntityID {
	return EntityID(uuid.New().String())
}

// Category tags a component type with the broad facet of entity state it
// represents.
type Category uint8

const (
	CategoryCore Category = iota
	CategoryPhysical
	CategoryVisual
	CategoryGameplay
	CategoryAI
	CategoryEconomic
	CategoryTemporal
)

func (c Category) String() string {
	switch c {
	case CategoryCore:
		return "core"
	case CategoryPhysical:
		return "physical"
	case CategoryVisual:
		return "visual"
	case CategoryGameplay:
		return "gameplay"
	case CategoryAI:
		return "ai"
	case CategoryEconomic:
		return "economic"
	case CategoryTemporal:
		return "temporal"
	}
	return "unknown"
}

// Component is the interface user-defined component payload structs must
// implement. The registry key for a component type is derived from the
// struct's type name, not from a method, so payloads stay plain data.
type Component interface {
	// Category returns the facet of entity state this component represents.
	Category() Category
}

// TypeNameOf derives the registry key for a component payload type: the
// struct name with a trailing "Component" suffix stripped, lower-cased.
// TransformComponent and Transform both map to "transform".
func TypeNameOf(c Component) string {
	t := reflect.TypeOf(c)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return TypeNameFor(t)
}

// TypeNameFor is TypeNameOf for a reflect.Type.
func TypeNameFor(t reflect.Type) string {
	name := t.Name()
	if trimmed := strings.TrimSuffix(name, "Component"); trimmed != "" {
		name = trimmed
	}
	return strings.ToLower(name)
}

// EntityRecord is the serialized shape of one entity: its ID plus a mapping
// of component-type name to that component's JSON-encoded fields. The
// save/load collaborator owns any on-disk format beyond this.
type EntityRecord struct {
	EntityID   EntityID                   `json:"entity_id"`
	Components map[string]json.RawMessage `json:"components"`
}
