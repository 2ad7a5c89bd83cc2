// Package value implements SpeedSQL's tagged-union column value, the
// Value type every row, key, and expression result is built from.
package value

import (
	"bytes"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Kind tags the payload a Value carries.
type Kind byte

const (
	Null Kind = iota
	Int64
	Float64
	Text
	Blob
	Json
	Vector
)

// Value is a closed tagged union over the column types SpeedSQL
// supports. It is never an interface{} so DeepCopy, Compare, and Hash
// stay mechanical instead of reflective.
type Value struct {
	Kind  Kind
	i     int64
	f     float64
	bytes []byte // Text, Blob, Json (raw bytes), Vector (float64 little-endian packed)
}

func NewNull() Value               { return Value{Kind: Null} }
func NewInt64(v int64) Value        { return Value{Kind: Int64, i: v} }
func NewFloat64(v float64) Value    { return Value{Kind: Float64, f: v} }
func NewText(s string) Value        { return Value{Kind: Text, bytes: []byte(s)} }
func NewBlob(b []byte) Value        { return Value{Kind: Blob, bytes: append([]byte(nil), b...)} }
func NewJSON(raw []byte) Value      { return Value{Kind: Json, bytes: append([]byte(nil), raw...)} }

func NewVector(v []float64) Value {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		putFloat64(buf[i*8:], f)
	}
	return Value{Kind: Vector, i: int64(len(v)), bytes: buf}
}

func (v Value) IsNull() bool { return v.Kind == Null }

func (v Value) Int64() int64 { return v.i }

func (v Value) Float64() float64 { return v.f }

func (v Value) Text() string { return string(v.bytes) }

func (v Value) Blob() []byte { return v.bytes }

func (v Value) Vector() []float64 {
	n := int(v.i)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = getFloat64(v.bytes[i*8:])
	}
	return out
}

// DeepCopy returns a Value sharing no backing storage with v.
func (v Value) DeepCopy() Value {
	cp := v
	if v.bytes != nil {
		cp.bytes = append([]byte(nil), v.bytes...)
	}
	return cp
}

// Compare implements SpeedSQL's total order: Null sorts least, numeric
// kinds compare after cross-promotion to float64, Text and Blob compare
// lexicographically by raw bytes, Json and Vector compare by raw
// encoding (no canonicalization).
func Compare(a, b Value) int {
	if a.Kind == Null || b.Kind == Null {
		switch {
		case a.Kind == Null && b.Kind == Null:
			return 0
		case a.Kind == Null:
			return -1
		default:
			return 1
		}
	}
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return bytes.Compare(a.bytes, b.bytes)
}

func isNumeric(k Kind) bool { return k == Int64 || k == Float64 }

func asFloat(v Value) float64 {
	if v.Kind == Int64 {
		return float64(v.i)
	}
	return v.f
}

// Hash returns the xxHash64 digest of v's kind tag and payload, used by
// hash-partitioned GROUP BY and hash-join style lookups.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	d.Write([]byte{byte(v.Kind)})
	switch v.Kind {
	case Int64:
		var b [8]byte
		putInt64(b[:], v.i)
		d.Write(b[:])
	case Float64:
		var b [8]byte
		putFloat64(b[:], v.f)
		d.Write(b[:])
	case Null:
	default:
		d.Write(v.bytes)
	}
	return d.Sum64()
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func putFloat64(b []byte, f float64) {
	u := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func getFloat64(b []byte) float64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u |= uint64(b[i]) << (8 * i)
	}
	return math.Float64frombits(u)
}
