package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the deterministic CBOR encoder shared by every CBOR codec.
var encMode cbor.EncMode

// decMode rejects unknown fields so a reply of the wrong shape fails
// decoding instead of yielding a zero payload.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// CBOR encodes payloads as canonical CBOR.
type CBOR[T any] struct{}

// Name implements [Codec].
func (CBOR[T]) Name() string { return "cbor" }

// Encode implements [Codec].
func (c CBOR[T]) Encode(v T) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, encodeErr(c.Name(), err)
	}
	return b, nil
}

// Decode implements [Codec].  Trailing bytes after the first data item
// are rejected.
func (c CBOR[T]) Decode(b []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(b, &v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	if err := validate(&v); err != nil {
		return v, decodeErr(c.Name(), b, err)
	}
	return v, nil
}
