package btree

import (
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// Find looks up key, returning its value or a NotFound error.
func (t *Tree) Find(key []byte) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf, err := t.descendToLeaf(key)
	if err != nil {
		return nil, err
	}
	defer t.unpin(leaf, false)

	slot, exact := leafFind(leaf, key, t.cmp)
	if !exact {
		return nil, dberr.New(dberr.NotFound, "btree: key not found")
	}
	_, v := leafCell(leaf, slot)
	return append([]byte(nil), v...), nil
}

// descendToLeaf walks from the root to the leaf that contains or would
// contain key, releasing each page's pin before fetching its child so
// pin count never exceeds one page per traversal.
func (t *Tree) descendToLeaf(key []byte) (*page.Page, error) {
	local := t.rootLoc
	for {
		pg, err := t.fetch(local)
		if err != nil {
			return nil, err
		}
		h := pg.ReadHeader()
		if h.Type == page.TypeBTreeLeaf {
			return pg, nil
		}
		next := internalChild(pg, internalFind(pg, key, t.keySize, t.cmp), t.keySize)
		t.unpin(pg, false)
		local = uint32(next)
	}
}
