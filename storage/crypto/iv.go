package crypto

import "encoding/binary"

// DerivePageIV builds the deterministic 12-byte nonce for pageID: the
// low 8 bytes are the page id itself, bytes 8-10 carry the 'S','Q','L'
// marker, and the final byte is zero. Because the nonce depends only on
// the page id, rewriting the same page under the same key reuses the
// nonce -- a known weakness accepted rather than fixed; a proper fix
// would persist a per-page write counter alongside the page, which is
// future work, not a requirement here.
func DerivePageIV(pageID int64) [12]byte {
	var iv [12]byte
	binary.LittleEndian.PutUint64(iv[0:8], uint64(pageID))
	iv[8], iv[9], iv[10] = 'S', 'Q', 'L'
	return iv
}

// PageAAD builds the 8-byte additional authenticated data for pageID.
func PageAAD(pageID int64) [8]byte {
	var aad [8]byte
	binary.LittleEndian.PutUint64(aad[:], uint64(pageID))
	return aad
}
