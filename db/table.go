package db

import (
	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/btree"
)

// CreateTable registers a new table with the given columns and
// allocates a fresh, empty B+ tree for its rows.
func (d *Database) CreateTable(name string, cols []catalog.Column) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.createTable(name, cols)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) createTable(name string, cols []catalog.Column) error {
	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()

	if _, exists := d.cat.Tables[name]; exists {
		return dberr.New(dberr.Constraint, "table already exists: "+name)
	}
	tree, err := btree.Create(d.pool, compareRowKey)
	if err != nil {
		return err
	}
	t := &catalog.Table{Name: name, Columns: cols, RootPage: tree.RootPage()}
	if err := d.cat.AddTable(t); err != nil {
		return err
	}
	d.tables[name] = tree
	return nil
}

// DropTable removes a table's schema entry and pushes its tree's
// pages onto the freelist -- the "reclaim" resolution of spec.md §9's
// open question on DROP TABLE page disposal.
func (d *Database) DropTable(name string) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.dropTable(name)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) dropTable(name string) error {
	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()

	if _, exists := d.cat.Tables[name]; !exists {
		return dberr.New(dberr.NotFound, "no such table: "+name)
	}
	tree := d.tables[name]
	if tree != nil {
		if pages, err := tree.AllPages(); err == nil {
			d.pushFreelist(pages)
		}
	}
	if err := d.cat.DropTable(name); err != nil {
		return err
	}
	delete(d.tables, name)
	return nil
}

// Table returns the catalog definition and live tree for name.
func (d *Database) Table(name string) (*catalog.Table, *btree.Tree, bool) {
	d.schemaMu.RLock()
	defer d.schemaMu.RUnlock()
	t, ok := d.cat.Tables[name]
	if !ok {
		return nil, nil, false
	}
	return t, d.tables[name], true
}

// CreateIndex creates a secondary index and, per spec.md §9's open
// question resolution, populates it synchronously with a full scan of
// the owning table.
func (d *Database) CreateIndex(name, tableName string, colIndices []int, unique bool) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.createIndex(name, tableName, colIndices, unique)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) createIndex(name, tableName string, colIndices []int, unique bool) error {
	d.schemaMu.Lock()
	table, ok := d.cat.Tables[tableName]
	if !ok {
		d.schemaMu.Unlock()
		return dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	if _, exists := d.cat.Indices[name]; exists {
		d.schemaMu.Unlock()
		return dberr.New(dberr.Constraint, "index already exists: "+name)
	}
	dataTree := d.tables[tableName]
	d.schemaMu.Unlock()

	idxTree, err := btree.Create(d.pool, compareRowKey)
	if err != nil {
		return err
	}

	if err := d.populateIndex(idxTree, dataTree, colIndices, unique); err != nil {
		return err
	}

	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()
	idx := &catalog.Index{
		Name:     name,
		Table:    tableName,
		Columns:  colIndices,
		RootPage: idxTree.RootPage(),
		KeySize:  idxTree.KeySize(),
		Unique:   unique,
	}
	_ = table
	if err := d.cat.AddIndex(idx); err != nil {
		return err
	}
	d.indices[name] = idxTree
	return nil
}

// DropIndex removes an index's schema entry and frees its pages.
func (d *Database) DropIndex(name string) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.dropIndex(name)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) dropIndex(name string) error {
	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()

	if _, exists := d.cat.Indices[name]; !exists {
		return dberr.New(dberr.NotFound, "no such index: "+name)
	}
	tree := d.indices[name]
	if tree != nil {
		if pages, err := tree.AllPages(); err == nil {
			d.pushFreelist(pages)
		}
	}
	if err := d.cat.DropIndex(name); err != nil {
		return err
	}
	delete(d.indices, name)
	return nil
}

func (d *Database) Index(name string) (*catalog.Index, *btree.Tree, bool) {
	d.schemaMu.RLock()
	defer d.schemaMu.RUnlock()
	idx, ok := d.cat.Indices[name]
	if !ok {
		return nil, nil, false
	}
	return idx, d.indices[name], true
}

// pushFreelist records freed pages; per the open-question resolution
// the freelist is tracked but not yet consulted by page allocation,
// matching spec.md §9's framing of the freelist/allocator gap as
// acceptable future work.
func (d *Database) pushFreelist(pages []uint32) {
	d.freePages = append(d.freePages, pages...)
}
