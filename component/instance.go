package component

import (
	"time"

	"github.com/agrifun/agrifun/codec"
	"github.com/agrifun/agrifun/types"
)

// Instance is one component attached to one entity: the payload plus the
// bookkeeping the change-detection consumers rely on. The version strictly
// increases on every update, even one that applied no fields.
type Instance struct {
	meta       *Metadata
	data       types.Component
	createdAt  time.Time
	modifiedAt time.Time
	version    uint64
}

// NewInstance constructs a payload from a field mapping and wraps it.
func (m *Metadata) NewInstance(fields map[string]any) (*Instance, error) {
	comp, err := m.New(fields)
	if err != nil {
		return nil, err
	}
	return m.wrap(comp), nil
}

// WrapInstance wraps a pre-built payload. By-value payloads are copied so
// the stored instance owns its data.
func (m *Metadata) WrapInstance(c types.Component) (*Instance, error) {
	comp, err := m.normalize(c)
	if err != nil {
		return nil, err
	}
	return m.wrap(comp), nil
}

func (m *Metadata) wrap(c types.Component) *Instance {
	now := time.Now()
	return &Instance{
		meta:       m,
		data:       c,
		createdAt:  now,
		modifiedAt: now,
		version:    1,
	}
}

// TypeName returns the registry key of this instance's component type.
func (i *Instance) TypeName() string {
	return i.meta.Name()
}

func (i *Instance) Category() types.Category {
	return i.meta.Category()
}

// Data returns the payload as a pointer to the component struct.
func (i *Instance) Data() types.Component {
	return i.data
}

func (i *Instance) Version() uint64 {
	return i.version
}

func (i *Instance) CreatedAt() time.Time {
	return i.createdAt
}

func (i *Instance) ModifiedAt() time.Time {
	return i.modifiedAt
}

// Update applies each known field in updates to the payload and returns the
// names that were applied. Unknown field names are silently skipped. The
// version and modification time are bumped unconditionally: an update call
// is a mutation event whether or not any field matched.
func (i *Instance) Update(updates map[string]any) []string {
	applied := i.meta.applyFields(i.data, updates)
	i.touch()
	return applied
}

func (i *Instance) touch() {
	i.version++
	if now := time.Now(); now.After(i.modifiedAt) {
		i.modifiedAt = now
	}
}

// Encode returns the payload's JSON-encoded fields.
func (i *Instance) Encode() ([]byte, error) {
	return codec.Encode(i.data)
}

// Snapshot returns a plain field-name-keyed mapping of the payload, the
// shape carried in component_added notifications.
func (i *Instance) Snapshot() (map[string]any, error) {
	bz, err := i.Encode()
	if err != nil {
		return nil, err
	}
	return codec.Decode[map[string]any](bz)
}
