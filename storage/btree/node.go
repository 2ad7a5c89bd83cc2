package btree

import (
	"encoding/binary"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// invalidPtr marks the absence of a leaf-chain neighbor.
const invalidPtr uint64 = ^uint64(0)

// Leaf body layout (within page.Page.Body()):
//
//	[0:8)   next leaf page id (u64 LE, invalidPtr if none)
//	[8:16)  prev leaf page id (u64 LE, invalidPtr if none)
//	[16:16+2n) cell offset array, sorted by key, u16 each, relative to body start
//	...free space...
//	cells, allocated back-to-front from the tail of the body
//
// Each cell: keyLen u16, valLen u16, key bytes, value bytes.
const leafFixedHeader = 16

func initLeaf(pg *page.Page) {
	pg.WriteHeader(page.Header{
		Type:      page.TypeBTreeLeaf,
		CellCount: 0,
		FreeStart: leafFixedHeader,
		FreeEnd:   uint16(len(pg.Body())),
	})
	body := pg.Body()
	binary.LittleEndian.PutUint64(body[0:8], invalidPtr)
	binary.LittleEndian.PutUint64(body[8:16], invalidPtr)
}

func leafNext(pg *page.Page) uint64 { return binary.LittleEndian.Uint64(pg.Body()[0:8]) }
func leafPrev(pg *page.Page) uint64 { return binary.LittleEndian.Uint64(pg.Body()[8:16]) }

func setLeafNext(pg *page.Page, v uint64) { binary.LittleEndian.PutUint64(pg.Body()[0:8], v) }
func setLeafPrev(pg *page.Page, v uint64) { binary.LittleEndian.PutUint64(pg.Body()[8:16], v) }

func leafOffset(pg *page.Page, i int) uint16 {
	o := leafFixedHeader + 2*i
	return binary.LittleEndian.Uint16(pg.Body()[o : o+2])
}

func setLeafOffset(pg *page.Page, i int, off uint16) {
	o := leafFixedHeader + 2*i
	binary.LittleEndian.PutUint16(pg.Body()[o:o+2], off)
}

// leafCell reads the i'th cell (in offset-array order, which is key
// order) and returns its key and value, both views into the page body.
func leafCell(pg *page.Page, i int) (key, val []byte) {
	body := pg.Body()
	off := leafOffset(pg, i)
	keyLen := binary.LittleEndian.Uint16(body[off : off+2])
	valLen := binary.LittleEndian.Uint16(body[off+2 : off+4])
	key = body[off+4 : off+4+keyLen]
	val = body[off+4+keyLen : off+4+keyLen+valLen]
	return
}

func leafKeyCount(pg *page.Page) int { return int(pg.ReadHeader().CellCount) }

func leafFreeSpace(pg *page.Page) int {
	h := pg.ReadHeader()
	return int(h.FreeEnd) - int(h.FreeStart)
}

// leafFind returns the slot of key (exact match) or the insertion
// point (first slot whose key is > the search key) plus whether it was
// an exact match.
func leafFind(pg *page.Page, key []byte, cmp Compare) (slot int, exact bool) {
	n := leafKeyCount(pg)
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		k, _ := leafCell(pg, mid)
		c := cmp(k, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// leafInsertAt writes a new cell at logical slot, shifting later
// offsets right by one. Caller must have already verified free space.
func leafInsertAt(pg *page.Page, slot int, key, val []byte) {
	h := pg.ReadHeader()
	n := int(h.CellCount)
	cellLen := 4 + len(key) + len(val)
	newFreeEnd := int(h.FreeEnd) - cellLen
	body := pg.Body()
	binary.LittleEndian.PutUint16(body[newFreeEnd:newFreeEnd+2], uint16(len(key)))
	binary.LittleEndian.PutUint16(body[newFreeEnd+2:newFreeEnd+4], uint16(len(val)))
	copy(body[newFreeEnd+4:], key)
	copy(body[newFreeEnd+4+len(key):], val)

	// shift offset array entries [slot, n) right by one slot
	for i := n; i > slot; i-- {
		setLeafOffset(pg, i, leafOffset(pg, i-1))
	}
	setLeafOffset(pg, slot, uint16(newFreeEnd))

	h.CellCount = uint16(n + 1)
	h.FreeStart = uint16(leafFixedHeader + 2*(n+1))
	h.FreeEnd = uint16(newFreeEnd)
	pg.WriteHeader(h)
}

// leafDeleteAt tombstones the cell at slot: the offset-array entry is
// removed, but the cell bytes in the tail are left in place per the
// spec's no-reclaim delete semantics.
func leafDeleteAt(pg *page.Page, slot int) {
	h := pg.ReadHeader()
	n := int(h.CellCount)
	for i := slot; i < n-1; i++ {
		setLeafOffset(pg, i, leafOffset(pg, i+1))
	}
	h.CellCount = uint16(n - 1)
	h.FreeStart = uint16(leafFixedHeader + 2*(n-1))
	pg.WriteHeader(h)
}

// Internal node body layout:
//
//	[0:8) child0 page id (u64 LE)
//	then, repeated header.CellCount times: key (keySize bytes), child_{i+1} (u64 LE)
const internalFixedHeader = 8

func initInternal(pg *page.Page, keySize int, child0 uint64) {
	pg.WriteHeader(page.Header{Type: page.TypeBTreeInternal, CellCount: 0})
	binary.LittleEndian.PutUint64(pg.Body()[0:8], child0)
}

func internalKeyCount(pg *page.Page) int { return int(pg.ReadHeader().CellCount) }

func internalEntrySize(keySize int) int { return keySize + 8 }

func internalChild(pg *page.Page, i int, keySize int) uint64 {
	if i == 0 {
		return binary.LittleEndian.Uint64(pg.Body()[0:8])
	}
	off := internalFixedHeader + (i-1)*internalEntrySize(keySize) + keySize
	return binary.LittleEndian.Uint64(pg.Body()[off : off+8])
}

func internalKey(pg *page.Page, i int, keySize int) []byte {
	off := internalFixedHeader + i*internalEntrySize(keySize)
	return pg.Body()[off : off+keySize]
}

// internalFind returns the child slot to descend into for key: the
// largest i such that internalKey(i-1) <= key, i.e. standard B+ tree
// internal-node routing.
func internalFind(pg *page.Page, key []byte, keySize int, cmp Compare) int {
	n := internalKeyCount(pg)
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(internalKey(pg, mid, keySize), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// internalInsertAt inserts (key, rightChild) at logical key-slot idx,
// assuming idx's existing child becomes the left sibling of the new
// separator. Caller guarantees free space.
func internalInsertAt(pg *page.Page, idx int, key []byte, rightChild uint64, keySize int) {
	h := pg.ReadHeader()
	n := int(h.CellCount)
	body := pg.Body()
	entrySize := internalEntrySize(keySize)
	// shift entries [idx, n) right by one entry
	for i := n; i > idx; i-- {
		srcOff := internalFixedHeader + (i-1)*entrySize
		dstOff := internalFixedHeader + i*entrySize
		copy(body[dstOff:dstOff+entrySize], body[srcOff:srcOff+entrySize])
	}
	off := internalFixedHeader + idx*entrySize
	copy(body[off:off+keySize], key)
	binary.LittleEndian.PutUint64(body[off+keySize:off+keySize+8], rightChild)
	h.CellCount = uint16(n + 1)
	pg.WriteHeader(h)
}

func internalFreeSpace(pg *page.Page, keySize int) int {
	n := internalKeyCount(pg)
	used := internalFixedHeader + n*internalEntrySize(keySize)
	return len(pg.Body()) - used
}

var errCorruptNode = dberr.New(dberr.Corrupt, "btree: page is not a valid node")
