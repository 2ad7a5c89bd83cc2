package db

import (
	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/btree"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// InsertRow appends vals as a new row of table, assigning it the next
// row id off the connection's single monotonic counter (spec.md §3),
// and maintains every secondary index defined over the table.
func (d *Database) InsertRow(tableName string, vals []value.Value) (rowID int64, err error) {
	implicit, err := d.ensureTxn()
	if err != nil {
		return 0, err
	}
	rowID, err = d.insertRow(tableName, vals)
	if cerr := d.finishAutocommit(implicit, err); cerr != nil {
		return 0, cerr
	}
	return rowID, nil
}

func (d *Database) insertRow(tableName string, vals []value.Value) (int64, error) {
	table, tree, ok := d.Table(tableName)
	if !ok {
		return 0, dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	if len(vals) != len(table.Columns) {
		return 0, dberr.New(dberr.Constraint, "column count mismatch")
	}

	d.mu.Lock()
	d.lastRowID++
	rowID := d.lastRowID
	d.mu.Unlock()

	key := encodeRowID(rowID)
	payload := value.EncodeRow(vals)
	if err := tree.Insert(key, payload); err != nil {
		return 0, err
	}

	if err := d.maintainIndices(tableName, vals, key, true); err != nil {
		return 0, err
	}

	d.mu.Lock()
	d.totalChanges++
	d.mu.Unlock()
	return rowID, nil
}

// UpdateRow overwrites an existing row's columns by row id.
func (d *Database) UpdateRow(tableName string, rowID int64, vals []value.Value) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.updateRow(tableName, rowID, vals)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) updateRow(tableName string, rowID int64, vals []value.Value) error {
	table, tree, ok := d.Table(tableName)
	if !ok {
		return dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	if len(vals) != len(table.Columns) {
		return dberr.New(dberr.Constraint, "column count mismatch")
	}

	key := encodeRowID(rowID)
	cur := tree.NewCursor()
	exact, err := cur.Seek(key)
	cur.Close()
	if err != nil {
		return err
	}
	if !exact {
		return dberr.New(dberr.NotFound, "no such row")
	}

	old, err := d.readRow(tableName, rowID)
	if err != nil {
		return err
	}
	if err := d.maintainIndices(tableName, old, key, false); err != nil {
		return err
	}

	payload := value.EncodeRow(vals)
	if err := tree.Delete(key); err != nil {
		return err
	}
	if err := tree.Insert(key, payload); err != nil {
		return err
	}
	if err := d.maintainIndices(tableName, vals, key, true); err != nil {
		return err
	}

	d.mu.Lock()
	d.totalChanges++
	d.mu.Unlock()
	return nil
}

// DeleteRow removes a row by row id and retires its index entries.
func (d *Database) DeleteRow(tableName string, rowID int64) error {
	implicit, err := d.ensureTxn()
	if err != nil {
		return err
	}
	err = d.deleteRow(tableName, rowID)
	return d.finishAutocommit(implicit, err)
}

func (d *Database) deleteRow(tableName string, rowID int64) error {
	_, tree, ok := d.Table(tableName)
	if !ok {
		return dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	key := encodeRowID(rowID)

	old, err := d.readRow(tableName, rowID)
	if err != nil {
		return err
	}
	if err := d.maintainIndices(tableName, old, key, false); err != nil {
		return err
	}
	if err := tree.Delete(key); err != nil {
		return err
	}

	d.mu.Lock()
	d.totalChanges++
	d.mu.Unlock()
	return nil
}

// readRow fetches and decodes a single row by id, for update/delete's
// before-image index maintenance.
func (d *Database) readRow(tableName string, rowID int64) ([]value.Value, error) {
	_, tree, ok := d.Table(tableName)
	if !ok {
		return nil, dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	key := encodeRowID(rowID)
	cur := tree.NewCursor()
	defer cur.Close()
	exact, err := cur.Seek(key)
	if err != nil {
		return nil, err
	}
	if !exact {
		return nil, dberr.New(dberr.NotFound, "no such row")
	}
	return value.DecodeRow(cur.Value())
}

// maintainIndices inserts (adding=true) or removes (adding=false) the
// entries every index on tableName derives from row for rowKey.
func (d *Database) maintainIndices(tableName string, row []value.Value, rowKey []byte, adding bool) error {
	d.schemaMu.RLock()
	var idxs []*catalog.Index
	for _, idx := range d.cat.Indices {
		if idx.Table == tableName {
			idxs = append(idxs, idx)
		}
	}
	d.schemaMu.RUnlock()

	for _, idx := range idxs {
		_, tree, ok := d.Index(idx.Name)
		if !ok {
			continue
		}
		idxKey := encodeIndexKey(row, idx.Columns)
		if !idx.Unique {
			idxKey = append(idxKey, rowKey...)
		}
		if adding {
			if err := tree.Insert(idxKey, rowKey); err != nil {
				if idx.Unique {
					return dberr.New(dberr.Constraint, "unique index violated: "+idx.Name)
				}
				return err
			}
		} else {
			if err := tree.Delete(idxKey); err != nil && dberr.CodeOf(err) != dberr.NotFound {
				return err
			}
		}
	}
	return nil
}

// NewTableCursor returns a forward cursor over a table's rows, ordered
// by row id, for full-table-scan execution.
func (d *Database) NewTableCursor(tableName string) (*btree.Cursor, error) {
	_, tree, ok := d.Table(tableName)
	if !ok {
		return nil, dberr.New(dberr.NotFound, "no such table: "+tableName)
	}
	return tree.NewCursor(), nil
}
