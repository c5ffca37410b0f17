package codec

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	comp := new(T)
	err := json.Unmarshal(bz, comp)
	if err != nil {
		return *comp, eris.Wrap(err, "")
	}
	return *comp, nil
}

// DecodeInto decodes bz into the given pointer target.
func DecodeInto(bz []byte, target any) error {
	return eris.Wrap(json.Unmarshal(bz, target), "")
}

// DecodeStrict decodes bz into the given pointer target and fails on any
// field name the target does not declare. Component construction uses this
// so a typo in authored content surfaces as an error instead of a silently
// dropped field.
func DecodeStrict(bz []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.DisallowUnknownFields()
	return eris.Wrap(dec.Decode(target), "")
}

func Encode(comp any) ([]byte, error) {
	bz, err := json.Marshal(comp)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}
