package codec

import (
	"bytes"
	"errors"
	"reflect"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ── TOML ─────────────────────────────────────────────────────────────

// TOML encodes payloads as TOML documents.  T must be a struct or a
// map.  Decoding is strict: unknown keys, syntax errors, and missing
// `polygon:"required"` fields are all rejected.
type TOML[T any] struct{}

// Name implements [Codec].
func (TOML[T]) Name() string { return "toml" }

// Encode implements [Codec].
func (c TOML[T]) Encode(v T) ([]byte, error) {
	b, err := toml.Marshal(v)
	if err != nil {
		return nil, encodeErr(c.Name(), err)
	}
	return b, nil
}

// Decode implements [Codec].
func (c TOML[T]) Decode(b []byte) (T, error) {
	var v T
	// An empty document is valid TOML; required fields reject it below.
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	if err := missingKey(doc, requiredKeys(reflect.TypeOf(v), "toml")); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	if err := validate(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	return v, nil
}

// ── YAML ─────────────────────────────────────────────────────────────

// YAML encodes payloads as single YAML documents with the same strict
// decoding rules as [TOML].
type YAML[T any] struct{}

// Name implements [Codec].
func (YAML[T]) Name() string { return "yaml" }

// Encode implements [Codec].
func (c YAML[T]) Encode(v T) (b []byte, err error) {
	// yaml.v3 panics on some unrepresentable values (funcs, channels).
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, encodeErr(c.Name(), errors.New(toString(r)))
		}
	}()
	b, err = yaml.Marshal(v)
	if err != nil {
		return nil, encodeErr(c.Name(), err)
	}
	return b, nil
}

// Decode implements [Codec].
func (c YAML[T]) Decode(b []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(b)) == 0 {
		return v, decodeErr(c.Name(), b, errors.New("empty document"))
	}

	if keys := requiredKeys(reflect.TypeOf(v), "yaml"); len(keys) > 0 {
		var doc map[string]any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return v, decodeErr(c.Name(), b, err)
		}
		if err := missingKey(doc, keys); err != nil {
			return v, decodeErr(c.Name(), b, err)
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	if err := validate(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	return v, nil
}

func toString(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unrepresentable value"
}
