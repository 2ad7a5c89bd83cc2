package db

import (
	"bytes"
	"encoding/binary"
)

// encodeRowID maps a signed row id to an 8-byte big-endian key whose
// unsigned-byte ordering matches signed numeric ordering: the sign bit
// is flipped so negative ids sort before positive ones.
func encodeRowID(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id)^(1<<63))
	return b[:]
}

func decodeRowID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// DecodeRowID recovers the row id a table-tree key was built from, for
// callers walking a NewTableCursor directly (sql/exec's UPDATE/DELETE
// scans, which need the id to call UpdateRow/DeleteRow after matching
// a row against WHERE).
func DecodeRowID(key []byte) int64 { return decodeRowID(key) }

// compareRowKey orders encoded row-id keys, and doubles as the
// comparator for secondary-index trees: index keys are value.Value
// encodings compared byte-for-byte, which is exactly lexicographic
// byte order.
func compareRowKey(a, b []byte) int { return bytes.Compare(a, b) }
