package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Raw treats a payload as an opaque fixed-layout byte array: integers,
// floats, bools, arrays, and structs made only of those.  Encoding is a
// direct copy in Order (big-endian when nil); decoding rejects any
// buffer whose length differs from the layout size.
type Raw[T any] struct {
	Order binary.ByteOrder
}

// Name implements [Codec].
func (Raw[T]) Name() string { return "raw" }

func (c Raw[T]) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.BigEndian
	}
	return c.Order
}

// Size returns the encoded length of T, or -1 if T has no fixed layout.
func (Raw[T]) Size() int {
	var v T
	return layoutSize(v)
}

// Encode implements [Codec].
func (c Raw[T]) Encode(v T) ([]byte, error) {
	size := layoutSize(v)
	if size < 0 {
		return nil, encodeErr(c.Name(), fmt.Errorf("%T has no fixed layout", v))
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := binary.Write(buf, c.order(), v); err != nil {
		return nil, encodeErr(c.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode implements [Codec].
func (c Raw[T]) Decode(b []byte) (T, error) {
	var v T
	size := layoutSize(v)
	if size < 0 {
		return v, decodeErr(c.Name(), b, fmt.Errorf("%T has no fixed layout", v))
	}
	if len(b) != size {
		return v, decodeErr(c.Name(), b, fmt.Errorf("want %d bytes for %T", size, v))
	}
	if err := binary.Read(bytes.NewReader(b), c.order(), &v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	if err := validate(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	return v, nil
}

// layoutSize is binary.Size restricted to types binary.Read can fill:
// no slices, and no unexported struct fields other than blank padding.
func layoutSize(v any) int {
	if v == nil || !fixedLayout(reflect.TypeOf(v)) {
		return -1
	}
	return binary.Size(v)
}

func fixedLayout(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return fixedLayout(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && f.Name != "_" {
				return false
			}
			if !fixedLayout(f.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// ── Bytes ────────────────────────────────────────────────────────────

// Bytes is the identity codec for payloads that are already bytes.
// Both directions copy so callers may reuse their buffers.
type Bytes struct{}

// Name implements [Codec].
func (Bytes) Name() string { return "bytes" }

// Encode implements [Codec].
func (Bytes) Encode(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}

// Decode implements [Codec].
func (Bytes) Decode(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}
