package component

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/agrifun/agrifun/types"
)

// Registry is the catalog of known component types, keyed by derived name.
// It is populated once at startup by gameplay modules and read by the
// entity manager for every attach.
type Registry struct {
	components map[string]*Metadata
}

func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*Metadata),
	}
}

// Register records the component type T under its derived name and returns
// the resulting metadata. Re-registering a name silently replaces the
// previous entry; a warning is logged when the replacement's schema differs
// so accidental name collisions are visible in logs.
func Register[T types.Component](r *Registry, dependencies ...string) (*Metadata, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return nil, eris.New("cannot register a nil component type")
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	name := types.TypeNameFor(typ)
	if name == "" {
		return nil, eris.Errorf("cannot derive a component name from type %s", typ)
	}
	// Instantiate through reflection so pointer registrations do not call
	// Category on a nil receiver.
	instance, ok := reflect.New(typ).Interface().(types.Component)
	if !ok {
		return nil, eris.Errorf("type %s does not implement the Component interface", typ)
	}
	meta, err := newMetadata(name, typ, instance.Category(), dependencies)
	if err != nil {
		return nil, err
	}
	if prev, ok := r.components[name]; ok {
		same, diffErr := IsSchemaValid(prev.Schema(), meta.Schema())
		if diffErr == nil && !same {
			log.Warn().
				Str("component", name).
				Msg("component re-registered with a different schema")
		}
	}
	r.components[name] = meta
	return meta, nil
}

// MustRegister is Register for startup call sites where a registration
// failure is a programming error.
func MustRegister[T types.Component](r *Registry, dependencies ...string) *Metadata {
	meta, err := Register[T](r, dependencies...)
	if err != nil {
		panic(fmt.Sprintf("failed to register component: %v", err))
	}
	return meta
}

// Get returns the metadata for the given component-type name, or nil when
// the name was never registered. Callers must treat nil as "unregistered".
func (r *Registry) Get(name string) *Metadata {
	return r.components[name]
}

// Len returns the number of registered component types.
func (r *Registry) Len() int {
	return len(r.components)
}

// RegisteredComponents returns the sorted names of every registered type.
func (r *Registry) RegisteredComponents() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDependencies checks every declared dependency of every component
// in componentSet against the set itself and returns a human-readable
// string per missing dependency. An empty result means the set is
// self-consistent. This is advisory: the entity manager never calls it on
// its own.
func (r *Registry) ValidateDependencies(componentSet []string) []string {
	present := make(map[string]struct{}, len(componentSet))
	for _, name := range componentSet {
		present[name] = struct{}{}
	}
	var missing []string
	for _, name := range componentSet {
		meta := r.Get(name)
		if meta == nil {
			continue
		}
		for _, dep := range meta.Dependencies() {
			if _, ok := present[dep]; !ok {
				missing = append(missing, fmt.Sprintf("component %q requires %q", name, dep))
			}
		}
	}
	sort.Strings(missing)
	return missing
}
