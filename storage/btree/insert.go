package btree

import (
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// Insert adds key -> value. A key already present fails with
// dberr.Constraint per the primary-key / unique-index duplicate rule;
// callers wanting upsert semantics must Delete first.
func (t *Tree) Insert(key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var path [MaxDepth]pathEntry
	depth := 0
	local := t.rootLoc
	for depth < MaxDepth {
		pg, err := t.fetch(local)
		if err != nil {
			return err
		}
		h := pg.ReadHeader()
		if h.Type == page.TypeBTreeLeaf {
			return t.insertIntoLeaf(pg, key, value, path[:depth])
		}
		slot := internalFind(pg, key, t.keySize, t.cmp)
		path[depth] = pathEntry{local: local, slot: slot}
		depth++
		next := internalChild(pg, slot, t.keySize)
		t.unpin(pg, false)
		local = uint32(next)
	}
	return dberr.New(dberr.Full, "btree: tree deeper than max path depth")
}

func (t *Tree) insertIntoLeaf(leaf *page.Page, key, value []byte, path []pathEntry) error {
	slot, exact := leafFind(leaf, key, t.cmp)
	if exact {
		t.unpin(leaf, false)
		return dberr.New(dberr.Constraint, "btree: duplicate key")
	}

	needed := 2 + 4 + len(key) + len(value)
	if leafFreeSpace(leaf) >= needed {
		leafInsertAt(leaf, slot, key, value)
		return t.unpin(leaf, true)
	}
	return t.splitLeafAndInsert(leaf, slot, key, value, path)
}

// splitLeafAndInsert splits a full leaf, inserts (key, value) into
// whichever half it belongs in, and propagates the new separator up
// the recorded path, splitting internal nodes as needed.
func (t *Tree) splitLeafAndInsert(left *page.Page, slot int, key, value []byte, path []pathEntry) error {
	n := leafKeyCount(left)
	mid := n / 2

	right, err := t.newPage()
	if err != nil {
		t.unpin(left, false)
		return err
	}
	initLeaf(right)

	// copy the upper half [mid, n) into right, in order
	for i := mid; i < n; i++ {
		k, v := leafCell(left, i)
		leafInsertAt(right, i-mid, append([]byte(nil), k...), append([]byte(nil), v...))
	}
	// truncate left to [0, mid)
	for i := n - 1; i >= mid; i-- {
		leafDeleteAt(left, i)
	}

	leftLocal := page.LocalPageNum(left.ID)
	rightLocal := page.LocalPageNum(right.ID)

	// relink the leaf chain: left <-> right <-> left's old next
	oldNext := leafNext(left)
	setLeafNext(right, oldNext)
	setLeafPrev(right, uint64(leftLocal))
	setLeafNext(left, uint64(rightLocal))
	if oldNext != invalidPtr {
		if nb, err := t.fetch(uint32(oldNext)); err == nil {
			setLeafPrev(nb, uint64(rightLocal))
			t.unpin(nb, true)
		}
	}

	// insert the pending key into whichever half now owns its slot
	if slot < leafKeyCount(left) || (slot == mid && t.cmp(key, firstKey(right)) < 0) {
		s, _ := leafFind(left, key, t.cmp)
		leafInsertAt(left, s, key, value)
	} else {
		s, _ := leafFind(right, key, t.cmp)
		leafInsertAt(right, s, key, value)
	}

	separator := append([]byte(nil), firstKey(right)...)
	if t.keySize == 0 {
		t.keySize = len(separator)
	} else {
		separator = t.padKey(separator)
	}

	if err := t.unpin(left, true); err != nil {
		return err
	}
	if err := t.unpin(right, true); err != nil {
		return err
	}

	return t.propagateSeparator(separator, leftLocal, rightLocal, path)
}

func firstKey(leaf *page.Page) []byte {
	k, _ := leafCell(leaf, 0)
	return k
}

// propagateSeparator inserts (separator -> rightLocal) into the parent
// named by the tail of path, splitting internal nodes and growing a
// new root as the cascade requires.
func (t *Tree) propagateSeparator(separator []byte, leftLocal, rightLocal uint32, path []pathEntry) error {
	if len(path) == 0 {
		return t.growNewRoot(separator, leftLocal, rightLocal)
	}

	parentEntry := path[len(path)-1]
	parent, err := t.fetch(parentEntry.local)
	if err != nil {
		return err
	}

	idx := internalFind(parent, separator, t.keySize, t.cmp)
	needed := internalEntrySize(t.keySize)
	if internalFreeSpace(parent, t.keySize) >= needed {
		internalInsertAt(parent, idx, separator, uint64(rightLocal), t.keySize)
		return t.unpin(parent, true)
	}
	return t.splitInternalAndInsert(parent, idx, separator, rightLocal, path[:len(path)-1])
}

// splitInternalAndInsert splits a full internal node, promoting its
// median key to the grandparent (or a new root).
func (t *Tree) splitInternalAndInsert(node *page.Page, idx int, key []byte, rightChild uint32, path []pathEntry) error {
	// Materialize the logical post-insert entry list, then split it.
	n := internalKeyCount(node)
	children := make([]uint64, 0, n+2)
	keys := make([][]byte, 0, n+1)
	children = append(children, internalChild(node, 0, t.keySize))
	for i := 0; i < n; i++ {
		keys = append(keys, append([]byte(nil), internalKey(node, i, t.keySize)...))
		children = append(children, internalChild(node, i+1, t.keySize))
	}
	// splice in (key, rightChild) at logical position idx
	keys = append(keys[:idx], append([][]byte{append([]byte(nil), key...)}, keys[idx:]...)...)
	children = append(children[:idx+1], append([]uint64{uint64(rightChild)}, children[idx+1:]...)...)

	mid := len(keys) / 2
	medianKey := keys[mid]

	nodeLocal := page.LocalPageNum(node.ID)
	newPg, err := t.newPage()
	if err != nil {
		t.unpin(node, false)
		return err
	}
	newLocal := page.LocalPageNum(newPg.ID)

	initInternal(node, t.keySize, children[0])
	for i := 0; i < mid; i++ {
		internalInsertAt(node, i, keys[i], children[i+1], t.keySize)
	}

	initInternal(newPg, t.keySize, children[mid+1])
	for i := mid + 1; i < len(keys); i++ {
		internalInsertAt(newPg, i-mid-1, keys[i], children[i+1], t.keySize)
	}

	if err := t.unpin(node, true); err != nil {
		return err
	}
	if err := t.unpin(newPg, true); err != nil {
		return err
	}

	return t.propagateSeparator(medianKey, nodeLocal, newLocal, path)
}

// growNewRoot creates a new internal root pointing at leftLocal and
// rightLocal, used both when the true root splits.
func (t *Tree) growNewRoot(separator []byte, leftLocal, rightLocal uint32) error {
	if t.keySize == 0 {
		t.keySize = len(separator)
	}
	root, err := t.newPage()
	if err != nil {
		return err
	}
	initInternal(root, t.keySize, uint64(leftLocal))
	internalInsertAt(root, 0, t.padKey(separator), uint64(rightLocal), t.keySize)
	t.rootLoc = page.LocalPageNum(root.ID)
	return t.unpin(root, true)
}
