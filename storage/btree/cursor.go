package btree

import (
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// Cursor is a forward-only iterator over a tree's leaf chain. It keeps
// the leaf it is positioned on pinned between steps (Key and Value read
// from that page), and never more than that one page: Next unpins the
// current leaf before fetching the next one, and Close releases it.
// Cursors do not observe concurrent
// modification; behavior under a mutating Insert/Delete is undefined.
type Cursor struct {
	tree  *Tree
	leaf  *page.Page
	slot  int
	valid bool
}

// NewCursor allocates a cursor over t. Call First or Seek before
// reading Key/Value.
func (t *Tree) NewCursor() *Cursor {
	return &Cursor{tree: t}
}

// First positions the cursor at the leftmost key in the tree.
func (c *Cursor) First() error {
	c.tree.mu.RLock()
	defer c.tree.mu.RUnlock()
	c.close()

	local := c.tree.rootLoc
	for {
		pg, err := c.tree.fetch(local)
		if err != nil {
			return err
		}
		if pg.ReadHeader().Type == page.TypeBTreeLeaf {
			c.leaf = pg
			c.slot = 0
			c.valid = leafKeyCount(pg) > 0
			return nil
		}
		next := internalChild(pg, 0, c.tree.keySize)
		c.tree.unpin(pg, false)
		local = uint32(next)
	}
}

// Seek positions the cursor at key, or the first key greater than key
// if key is absent. It reports whether the hit was exact.
func (c *Cursor) Seek(key []byte) (exact bool, err error) {
	c.tree.mu.RLock()
	defer c.tree.mu.RUnlock()
	c.close()

	leaf, err := c.tree.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	slot, exact := leafFind(leaf, key, c.tree.cmp)
	c.leaf = leaf
	c.slot = slot
	c.valid = slot < leafKeyCount(leaf)
	if !c.valid {
		// key sorts after every cell in this leaf; the first greater
		// key, if any, is at the start of a later leaf in the chain.
		return exact, c.skipEmptyLeaves()
	}
	return exact, nil
}

// Valid reports whether Key/Value return a live row.
func (c *Cursor) Valid() bool { return c.valid }

// Next advances to the next key in order, following the leaf chain
// when the current page is exhausted.
func (c *Cursor) Next() error {
	if !c.valid {
		return dberr.New(dberr.Done, "btree: cursor exhausted")
	}
	c.tree.mu.RLock()
	defer c.tree.mu.RUnlock()

	c.slot++
	if c.slot < leafKeyCount(c.leaf) {
		return nil
	}
	next := leafNext(c.leaf)
	c.tree.unpin(c.leaf, false)
	c.leaf = nil
	if next == invalidPtr {
		c.valid = false
		return nil
	}
	pg, err := c.tree.fetch(uint32(next))
	if err != nil {
		return err
	}
	c.leaf = pg
	c.slot = 0
	c.valid = leafKeyCount(pg) > 0
	if !c.valid {
		// empty leaf reached mid-chain; keep following until a
		// non-empty leaf or the end of the chain is found.
		return c.skipEmptyLeaves()
	}
	return nil
}

// skipEmptyLeaves follows the leaf chain past fully-tombstoned empty
// leaves. Caller must hold c.tree.mu for reading.
func (c *Cursor) skipEmptyLeaves() error {
	for !c.valid {
		next := leafNext(c.leaf)
		c.tree.unpin(c.leaf, false)
		c.leaf = nil
		if next == invalidPtr {
			return nil
		}
		pg, err := c.tree.fetch(uint32(next))
		if err != nil {
			return err
		}
		c.leaf = pg
		c.slot = 0
		c.valid = leafKeyCount(pg) > 0
	}
	return nil
}

func (c *Cursor) Key() []byte {
	k, _ := leafCell(c.leaf, c.slot)
	return k
}

func (c *Cursor) Value() []byte {
	_, v := leafCell(c.leaf, c.slot)
	return v
}

func (c *Cursor) close() {
	if c.leaf != nil {
		c.tree.unpin(c.leaf, false)
		c.leaf = nil
	}
	c.valid = false
}

// Close releases any pinned page. Safe to call multiple times.
func (c *Cursor) Close() error {
	c.tree.mu.RLock()
	defer c.tree.mu.RUnlock()
	c.close()
	return nil
}
