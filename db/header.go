package db

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// magic is spec.md §6's 17-byte on-disk format identifier plus a
// trailing NUL. Only its first 16 bytes fit the header's magic field,
// so encode stores and decodeFileHeader checks magic[:16].
var magic = append([]byte("SpeedSQL format 1"), 0)

const formatVersion uint32 = 1

// InvalidPage marks the absence of a root/freelist page id in the header.
const InvalidPage uint64 = ^uint64(0)

// fileHeader is the first page's fixed layout, per spec.md §3/§6:
//
//	[0:16)  magic
//	[16:20) format version (u32 LE)
//	[20:24) page size (u32 LE), must equal page.Size
//	[24:32) page count (u64 LE)
//	[32:40) freelist head page id (u64 LE)
//	[40:48) freelist count (u64 LE)
//	[48:56) schema root page id (u64 LE)
//	[56:64) current transaction id (u64 LE)
//	[64:68) CRC32 of [0:64)
//	[68:4096) reserved, zero
//
// Bytes [68:84) and [84:108) of the reserved region additionally
// hold the cipher key-derivation salt and provider name, when the
// database is encrypted -- not part of spec.md §6's published layout
// (its CRC32 only covers [0:64)), but the only place a reopened
// connection can recover the salt it needs to re-derive the same key
// from the same passphrase.
const (
	cipherSaltOff = 68
	cipherSaltLen = 16
	cipherNameOff = cipherSaltOff + cipherSaltLen
	cipherNameLen = 24 // fits "chacha20-poly1305\0" with room to spare
)

type fileHeader struct {
	Version       uint32
	PageSize      uint32
	PageCount     uint64
	FreelistHead  uint64
	FreelistCount uint64
	SchemaRoot    uint64
	TxnID         uint64
	CipherSalt    []byte // nil/empty when not encrypted
	CipherName    string
}

func newFileHeader() fileHeader {
	return fileHeader{
		Version:      formatVersion,
		PageSize:     page.Size,
		SchemaRoot:   InvalidPage,
		FreelistHead: InvalidPage,
	}
}

func (h fileHeader) encode() []byte {
	buf := make([]byte, page.Size)
	copy(buf[0:16], magic)
	binary.LittleEndian.PutUint32(buf[16:20], h.Version)
	binary.LittleEndian.PutUint32(buf[20:24], h.PageSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.PageCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.FreelistHead)
	binary.LittleEndian.PutUint64(buf[40:48], h.FreelistCount)
	binary.LittleEndian.PutUint64(buf[48:56], h.SchemaRoot)
	binary.LittleEndian.PutUint64(buf[56:64], h.TxnID)
	sum := crc32.ChecksumIEEE(buf[0:64])
	binary.LittleEndian.PutUint32(buf[64:68], sum)
	copy(buf[cipherSaltOff:cipherSaltOff+cipherSaltLen], h.CipherSalt)
	copy(buf[cipherNameOff:cipherNameOff+cipherNameLen], h.CipherName)
	return buf
}

func decodeFileHeader(buf []byte) (fileHeader, error) {
	var h fileHeader
	if len(buf) < page.Size {
		return h, dberr.New(dberr.Corrupt, "header: short page")
	}
	for i, b := range magic[:16] {
		if buf[i] != b {
			return h, dberr.New(dberr.Corrupt, "header: bad magic")
		}
	}
	h.Version = binary.LittleEndian.Uint32(buf[16:20])
	if h.Version > formatVersion {
		return h, dberr.New(dberr.Corrupt, "header: unsupported format version")
	}
	h.PageSize = binary.LittleEndian.Uint32(buf[20:24])
	if h.PageSize != page.Size {
		return h, dberr.New(dberr.Corrupt, "header: page size mismatch")
	}
	h.PageCount = binary.LittleEndian.Uint64(buf[24:32])
	h.FreelistHead = binary.LittleEndian.Uint64(buf[32:40])
	h.FreelistCount = binary.LittleEndian.Uint64(buf[40:48])
	h.SchemaRoot = binary.LittleEndian.Uint64(buf[48:56])
	h.TxnID = binary.LittleEndian.Uint64(buf[56:64])

	want := binary.LittleEndian.Uint32(buf[64:68])
	got := crc32.ChecksumIEEE(buf[0:64])
	if want != got {
		return h, dberr.New(dberr.Corrupt, "header: checksum mismatch")
	}
	salt := append([]byte(nil), buf[cipherSaltOff:cipherSaltOff+cipherSaltLen]...)
	if anyNonZero(salt) {
		h.CipherSalt = salt
	}
	name := buf[cipherNameOff : cipherNameOff+cipherNameLen]
	if nul := indexByte(name, 0); nul >= 0 {
		h.CipherName = string(name[:nul])
	}
	return h, nil
}

func anyNonZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
