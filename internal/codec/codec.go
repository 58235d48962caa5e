// Package codec converts typed payloads to and from datagram bytes.
//
// Every variant implements [Codec].  Encode and Decode are pure: they
// never touch the network and keep no state between calls, so a single
// codec value may be shared by any number of goroutines.
package codec

import (
	"fmt"
	"reflect"
	"strings"

	perrors "polygon/internal/errors"
)

// Codec is a bidirectional payload ↔ bytes converter.
type Codec[T any] interface {
	// Name identifies the variant in logs and errors ("toml", "raw", …).
	Name() string

	// Encode serializes v.  Failures are *errors.EncodeError.
	Encode(v T) ([]byte, error)

	// Decode parses b into a T.  Failures are *errors.DecodeError.
	Decode(b []byte) (T, error)
}

// Validator is implemented by payloads that check their own shape after
// decoding.  A non-nil error turns into a DecodeError.
type Validator interface {
	Validate() error
}

// Names lists the variant names accepted by [Known].
func Names() []string {
	return []string{"bytes", "raw", "toml", "yaml", "cbor"}
}

// Known reports whether name is a codec variant.
func Known(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ── helpers ──────────────────────────────────────────────────────────

func encodeErr(codec string, err error) error {
	return &perrors.EncodeError{Codec: codec, Err: err}
}

func decodeErr(codec string, b []byte, err error) error {
	return &perrors.DecodeError{Codec: codec, Len: len(b), Err: err}
}

// validate runs the payload's own checks, if it has any.  The method
// set of *T covers both value and pointer receivers.
func validate[T any](v *T) error {
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}
	return nil
}

// requiredKeys returns the document keys of every top-level field of t
// tagged `polygon:"required"`.  tag names the format's own struct tag
// ("toml", "yaml") used to derive the key; the field name is the
// fallback, lower-cased for yaml as yaml.v3 does.
func requiredKeys(t reflect.Type, tag string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("polygon") != "required" {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
			if tag == "yaml" {
				name = strings.ToLower(name)
			}
		}
		keys = append(keys, name)
	}
	return keys
}

// missingKey returns the first required key absent from doc.
func missingKey(doc map[string]any, keys []string) error {
	for _, k := range keys {
		if _, ok := doc[k]; !ok {
			return fmt.Errorf("missing required field %q", k)
		}
	}
	return nil
}
