package codec

import "testing"

// BenchmarkRaw_Encode measures the fixed-layout fast path.
func BenchmarkRaw_Encode(b *testing.B) {
	c := Raw[reading]{}
	v := reading{Sensor: 7, Value: 21.5, Healthy: true}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := c.Encode(v); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTOML_Decode measures strict structured-text decoding,
// including the required-field pass.
func BenchmarkTOML_Decode(b *testing.B) {
	c := TOML[message]{}
	data, err := c.Encode(message{ID: 1, Msg: "Hello"})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCBOR_Decode measures CBOR decoding for comparison.
func BenchmarkCBOR_Decode(b *testing.B) {
	c := CBOR[message]{}
	data, err := c.Encode(message{ID: 1, Msg: "Hello"})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}
