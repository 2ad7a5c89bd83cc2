package exec

import (
	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

func execInsert(d *db.Database, stmt *ast.InsertStmt, params []value.Value) (*Result, error) {
	table, _, ok := d.Table(stmt.Table)
	if !ok {
		return nil, dberrNoSuchTable(stmt.Table)
	}

	positions, err := insertColumnPositions(table, stmt.Columns)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, exprs := range stmt.Rows {
		vals := make([]value.Value, len(table.Columns))
		for i := range vals {
			vals[i] = value.NewNull()
		}
		for i, e := range exprs {
			v, err := evalExpr(env{params: params}, e)
			if err != nil {
				return nil, err
			}
			vals[positions[i]] = v
		}
		rowID, err := d.InsertRow(stmt.Table, vals)
		if err != nil {
			return nil, err
		}
		res.RowsAffected++
		res.LastInsertID = rowID
	}
	return res, nil
}

// insertColumnPositions resolves an INSERT's (possibly omitted) column
// list to indices into the table's declared column order.
func insertColumnPositions(table *catalog.Table, cols []string) ([]int, error) {
	if len(cols) == 0 {
		out := make([]int, len(table.Columns))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, len(cols))
	for i, name := range cols {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return nil, dberrNoSuchColumn(name)
		}
		out[i] = idx
	}
	return out, nil
}

func execUpdate(d *db.Database, stmt *ast.UpdateStmt, params []value.Value) (*Result, error) {
	table, tree, ok := d.Table(stmt.Table)
	if !ok {
		return nil, dberrNoSuchTable(stmt.Table)
	}
	_ = tree

	cols := tableColumns(table, "")
	cur, err := d.NewTableCursor(stmt.Table)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	type pending struct {
		rowID int64
		vals  []value.Value
	}
	var todo []pending

	if err := cur.First(); err != nil {
		return nil, err
	}
	for cur.Valid() {
		rowID := db.DecodeRowID(cur.Key())
		vals, err := value.DecodeRow(cur.Value())
		if err != nil {
			return nil, err
		}
		r := row{cols: cols, values: vals}
		if stmt.Where != nil {
			wv, err := evalExpr(env{row: r, params: params}, stmt.Where)
			if err != nil {
				return nil, err
			}
			if !truthy(wv) {
				if err := cur.Next(); err != nil {
					return nil, err
				}
				continue
			}
		}

		newVals := append([]value.Value(nil), vals...)
		for _, a := range stmt.Assignments {
			idx := table.ColumnIndex(a.Column)
			if idx < 0 {
				return nil, dberrNoSuchColumn(a.Column)
			}
			v, err := evalExpr(env{row: r, params: params}, a.Value)
			if err != nil {
				return nil, err
			}
			newVals[idx] = v
		}
		todo = append(todo, pending{rowID: rowID, vals: newVals})

		if err := cur.Next(); err != nil {
			return nil, err
		}
	}
	cur.Close()

	res := &Result{}
	for _, p := range todo {
		if err := d.UpdateRow(stmt.Table, p.rowID, p.vals); err != nil {
			return nil, err
		}
		res.RowsAffected++
	}
	return res, nil
}

func execDelete(d *db.Database, stmt *ast.DeleteStmt, params []value.Value) (*Result, error) {
	table, _, ok := d.Table(stmt.Table)
	if !ok {
		return nil, dberrNoSuchTable(stmt.Table)
	}
	cols := tableColumns(table, "")

	cur, err := d.NewTableCursor(stmt.Table)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var rowIDs []int64
	if err := cur.First(); err != nil {
		return nil, err
	}
	for cur.Valid() {
		rowID := db.DecodeRowID(cur.Key())
		if stmt.Where != nil {
			vals, err := value.DecodeRow(cur.Value())
			if err != nil {
				return nil, err
			}
			wv, err := evalExpr(env{row: row{cols: cols, values: vals}, params: params}, stmt.Where)
			if err != nil {
				return nil, err
			}
			if !truthy(wv) {
				if err := cur.Next(); err != nil {
					return nil, err
				}
				continue
			}
		}
		rowIDs = append(rowIDs, rowID)
		if err := cur.Next(); err != nil {
			return nil, err
		}
	}
	cur.Close()

	res := &Result{}
	for _, id := range rowIDs {
		if err := d.DeleteRow(stmt.Table, id); err != nil {
			return nil, err
		}
		res.RowsAffected++
	}
	return res, nil
}
