package value

import (
	"encoding/binary"
	"fmt"

	"github.com/kjm99d/SpeedSQL/dberr"
)

// EncodeRow serializes vals as [column_count u32][per column: kind byte,
// payload] — the row-payload format rows are stored under in a table's
// B+ tree.
func EncodeRow(vals []Value) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(vals)))
	for _, v := range vals {
		buf = appendValue(buf, v)
	}
	return buf
}

// DecodeRow parses the format EncodeRow produces.
func DecodeRow(b []byte) ([]Value, error) {
	if len(b) < 4 {
		return nil, dberr.New(dberr.Corrupt, "row: truncated column count")
	}
	n := binary.LittleEndian.Uint32(b)
	b = b[4:]
	out := make([]Value, 0, n)
	for i := uint32(0); i < n; i++ {
		v, rest, err := readValue(b)
		if err != nil {
			return nil, fmt.Errorf("row column %d: %w", i, err)
		}
		out = append(out, v)
		b = rest
	}
	return out, nil
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case Null:
	case Int64:
		var b [8]byte
		putInt64(b[:], v.i)
		buf = append(buf, b[:]...)
	case Float64:
		var b [8]byte
		putFloat64(b[:], v.f)
		buf = append(buf, b[:]...)
	default: // Text, Blob, Json, Vector: length-prefixed raw bytes
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], uint32(len(v.bytes)))
		buf = append(buf, lb[:]...)
		buf = append(buf, v.bytes...)
		if v.Kind == Vector {
			var cb [8]byte
			putInt64(cb[:], v.i)
			buf = append(buf, cb[:]...)
		}
	}
	return buf
}

func readValue(b []byte) (Value, []byte, error) {
	if len(b) < 1 {
		return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated kind byte")
	}
	kind := Kind(b[0])
	b = b[1:]
	switch kind {
	case Null:
		return Value{Kind: Null}, b, nil
	case Int64:
		if len(b) < 8 {
			return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated int64")
		}
		return Value{Kind: Int64, i: getInt64(b)}, b[8:], nil
	case Float64:
		if len(b) < 8 {
			return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated float64")
		}
		return Value{Kind: Float64, f: getFloat64(b)}, b[8:], nil
	case Text, Blob, Json, Vector:
		if len(b) < 4 {
			return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated length")
		}
		n := binary.LittleEndian.Uint32(b)
		b = b[4:]
		if uint32(len(b)) < n {
			return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated payload")
		}
		payload := append([]byte(nil), b[:n]...)
		b = b[n:]
		v := Value{Kind: kind, bytes: payload}
		if kind == Vector {
			if len(b) < 8 {
				return Value{}, nil, dberr.New(dberr.Corrupt, "value: truncated vector length")
			}
			v.i = getInt64(b)
			b = b[8:]
		}
		return v, b, nil
	default:
		return Value{}, nil, dberr.New(dberr.Corrupt, fmt.Sprintf("value: unknown kind %d", kind))
	}
}

func getInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u |= uint64(b[i]) << (8 * i)
	}
	return int64(u)
}
