package db

import (
	"bytes"

	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/btree"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// encodeIndexKey concatenates the encoded column values named by
// colIndices, in order, into one comparable byte string.
func encodeIndexKey(row []value.Value, colIndices []int) []byte {
	vals := make([]value.Value, len(colIndices))
	for i, ci := range colIndices {
		vals[i] = row[ci]
	}
	return value.EncodeRow(vals)
}

// populateIndex performs the synchronous full-table-scan population
// spec.md §9's open question resolves CREATE INDEX to: every row in
// dataTree is decoded, its indexed columns are packed into a key, and
// that key is inserted (mapped to the row's primary key) into idxTree.
// storage/btree.Tree rejects any duplicate key outright, so a
// non-unique index disambiguates repeated column values by appending
// the row's own primary key to the index key; IndexEqualLookup strips
// that suffix back off by matching on the value prefix.
func (d *Database) populateIndex(idxTree, dataTree *btree.Tree, colIndices []int, unique bool) error {
	cur := dataTree.NewCursor()
	if err := cur.First(); err != nil {
		return err
	}
	defer cur.Close()

	for cur.Valid() {
		rowKey := append([]byte(nil), cur.Key()...)
		row, err := value.DecodeRow(cur.Value())
		if err != nil {
			return err
		}
		idxKey := encodeIndexKey(row, colIndices)
		if !unique {
			idxKey = append(idxKey, rowKey...)
		}
		if err := idxTree.Insert(idxKey, rowKey); err != nil {
			if unique {
				return dberr.New(dberr.Constraint, "unique index violated during population")
			}
			return err
		}
		if err := cur.Next(); err != nil {
			return err
		}
	}
	return nil
}

// IndexEqualLookup returns the primary-key row keys matching value
// under the named index's lead column, for exact-equality WHERE
// clauses the executor may choose to serve from the index rather than
// a full table scan.
func (d *Database) IndexEqualLookup(indexName string, key []byte) ([][]byte, error) {
	_, tree, ok := d.Index(indexName)
	if !ok {
		return nil, dberr.New(dberr.NotFound, "no such index: "+indexName)
	}
	cur := tree.NewCursor()
	// Seek lands on the value itself (a unique index's bare key) or,
	// for a non-unique index whose keys carry an appended row id, on
	// the first key greater than the bare value -- which is exactly
	// where its disambiguated entries begin. Either way, what follows
	// is checked by prefix below, so the exact/inexact distinction
	// Seek reports isn't needed here.
	if _, err := cur.Seek(key); err != nil {
		return nil, err
	}
	defer cur.Close()
	var out [][]byte
	for cur.Valid() {
		// A non-unique index's keys carry the row id appended after the
		// value, so match by prefix rather than by exact equality;
		// EncodeRow's length-prefixed fields make this unambiguous.
		if !bytes.HasPrefix(cur.Key(), key) {
			break
		}
		out = append(out, append([]byte(nil), cur.Value()...))
		if err := cur.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SingleColumnIndexOn returns the index defined over exactly the one
// table column colIndex, if any -- the planner's precondition for
// serving an equality WHERE clause from IndexEqualLookup instead of a
// full scan. A unique index is preferred when both exist.
func (d *Database) SingleColumnIndexOn(tableName string, colIndex int) (*catalog.Index, bool) {
	d.schemaMu.RLock()
	defer d.schemaMu.RUnlock()

	var found *catalog.Index
	for _, idx := range d.cat.Indices {
		if idx.Table != tableName || len(idx.Columns) != 1 || idx.Columns[0] != colIndex {
			continue
		}
		if found == nil || idx.Unique {
			found = idx
		}
	}
	return found, found != nil
}

// RowByID decodes the row stored under rowID in table, for callers
// (e.g. an index-equality scan) that already hold a primary key and
// need its current column values.
func (d *Database) RowByID(tableName string, rowID int64) ([]value.Value, error) {
	return d.readRow(tableName, rowID)
}
