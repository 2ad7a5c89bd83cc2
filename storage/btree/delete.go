package btree

import "github.com/kjm99d/SpeedSQL/dberr"

// Delete removes key. Per spec, deletion only tombstones the leaf's
// offset-array entry; cell bytes in the page tail are reclaimed only
// by a later split or compaction, never eagerly.
func (t *Tree) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.descendToLeaf(key)
	if err != nil {
		return err
	}
	slot, exact := leafFind(leaf, key, t.cmp)
	if !exact {
		t.unpin(leaf, false)
		return dberr.New(dberr.NotFound, "btree: key not found")
	}
	leafDeleteAt(leaf, slot)
	return t.unpin(leaf, true)
}
