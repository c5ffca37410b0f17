package component

import (
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/agrifun/agrifun/codec"
	"github.com/agrifun/agrifun/types"
)

// Metadata describes one registered component type: its derived name, the
// payload struct type, declared dependencies, JSON schema, and a field
// table used to apply field updates by name without walking the struct on
// every call.
type Metadata struct {
	name         string
	category     types.Category
	typ          reflect.Type
	dependencies []string
	schema       []byte
	fields       map[string]int
}

func newMetadata(name string, typ reflect.Type, category types.Category, dependencies []string) (*Metadata, error) {
	if typ.Kind() != reflect.Struct {
		return nil, eris.Errorf("component type %q must be a struct, got %s", name, typ.Kind())
	}
	schema, err := serializeSchema(typ)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		name:         name,
		category:     category,
		typ:          typ,
		dependencies: dependencies,
		schema:       schema,
		fields:       fieldTable(typ),
	}, nil
}

// fieldTable maps addressable field names (the json tag when present,
// otherwise the Go field name) to struct field indices.
func fieldTable(typ reflect.Type) map[string]int {
	table := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		table[name] = i
	}
	return table
}

func serializeSchema(typ reflect.Type) ([]byte, error) {
	componentSchema := jsonschema.Reflect(reflect.New(typ).Interface())
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsSchemaValid reports whether two serialized component schemas are
// identical.
func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// Name returns the registry key for this component type.
func (m *Metadata) Name() string {
	return m.name
}

func (m *Metadata) String() string {
	return m.name
}

// Category returns the facet of entity state this component type represents.
func (m *Metadata) Category() types.Category {
	return m.category
}

// Dependencies returns the component-type names declared to co-exist with
// this one. Validation is advisory; see Registry.ValidateDependencies.
func (m *Metadata) Dependencies() []string {
	return m.dependencies
}

// Schema returns the JSON schema captured for the payload struct.
func (m *Metadata) Schema() []byte {
	return m.schema
}

// New constructs a component payload from a field-name-keyed mapping. A nil
// or empty mapping produces the zero value. Unknown field names are an
// error: authored content with a typo must fail loudly at attach time.
func (m *Metadata) New(fields map[string]any) (types.Component, error) {
	ptr := reflect.New(m.typ)
	if len(fields) > 0 {
		bz, err := codec.Encode(fields)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to encode fields for component %q", m.name)
		}
		if err := codec.DecodeStrict(bz, ptr.Interface()); err != nil {
			return nil, eris.Wrapf(err, "failed to construct component %q", m.name)
		}
	}
	comp, ok := ptr.Interface().(types.Component)
	if !ok {
		return nil, eris.Errorf("component %q does not implement the Component interface", m.name)
	}
	return comp, nil
}

// normalize returns the payload as a pointer to this metadata's struct
// type, copying a by-value payload so subsequent updates mutate stored
// state and not a stack copy.
func (m *Metadata) normalize(c types.Component) (types.Component, error) {
	v := reflect.ValueOf(c)
	if v.Kind() == reflect.Pointer && v.Type().Elem() == m.typ {
		return c, nil
	}
	if v.Type() == m.typ {
		ptr := reflect.New(m.typ)
		ptr.Elem().Set(v)
		return ptr.Interface().(types.Component), nil
	}
	return nil, eris.Errorf("component %q expects payload type %s, got %T", m.name, m.typ, c)
}

// applyFields sets each known field named in updates on the payload and
// returns the names that were applied. Unknown field names are skipped.
func (m *Metadata) applyFields(c types.Component, updates map[string]any) []string {
	rv := reflect.ValueOf(c).Elem()
	applied := make([]string, 0, len(updates))
	for name, value := range updates {
		idx, ok := m.fields[name]
		if !ok {
			continue
		}
		if setField(rv.Field(idx), value) {
			applied = append(applied, name)
		}
	}
	return applied
}

func setField(field reflect.Value, value any) bool {
	if value == nil {
		return false
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return true
	}
	// JSON-decoded numbers arrive as float64; allow numeric narrowing.
	if isNumericKind(v.Kind()) && isNumericKind(field.Kind()) {
		field.Set(v.Convert(field.Type()))
		return true
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
