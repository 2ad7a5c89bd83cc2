package btree

import "github.com/kjm99d/SpeedSQL/storage/page"

// AllPages returns every local page number belonging to the tree, via
// a depth-first walk from the root. Used by DROP TABLE / DROP INDEX to
// push a destroyed tree's pages onto the freelist.
func (t *Tree) AllPages() ([]uint32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var pages []uint32
	var walk func(local uint32) error
	walk = func(local uint32) error {
		pg, err := t.fetch(local)
		if err != nil {
			return err
		}
		pages = append(pages, local)
		h := pg.ReadHeader()
		if h.Type == page.TypeBTreeLeaf {
			return t.unpin(pg, false)
		}
		n := internalKeyCount(pg)
		children := make([]uint64, n+1)
		for i := 0; i <= n; i++ {
			children[i] = internalChild(pg, i, t.keySize)
		}
		if err := t.unpin(pg, false); err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(uint32(c)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.rootLoc); err != nil {
		return nil, err
	}
	return pages, nil
}
