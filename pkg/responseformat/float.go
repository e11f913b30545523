package responseformat

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

var jsonNull = []byte("null")

// Float is a float64 that encodes NaN and ±Inf as null in both JSON and
// MessagePack. A decoded null reads back as NaN.
type Float float64

// Null returns a Float that encodes as null
func Null() Float {
	return Float(math.NaN())
}

// Valid reports whether f is a finite number
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) Float64() float64 {
	return float64(f)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return jsonNull, nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*f = Null()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func (f Float) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !f.Valid() {
		return enc.EncodeNil()
	}
	return enc.EncodeFloat64(float64(f))
}

func (f *Float) DecodeMsgpack(dec *msgpack.Decoder) error {
	var v *float64
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		*f = Null()
		return nil
	}
	*f = Float(*v)
	return nil
}
