package exec

import (
	"strings"

	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// source is one FROM/JOIN table reference resolved against the live
// catalog: the table definition plus whatever alias the query bound it
// to, for qualified column resolution.
type source struct {
	table *catalog.Table
	alias string
}

func resolveSource(d *db.Database, ref ast.TableRef) (source, error) {
	t, _, ok := d.Table(ref.Name)
	if !ok {
		return source{}, dberr.New(dberr.NotFound, "no such table: "+ref.Name)
	}
	return source{table: t, alias: ref.Alias}, nil
}

// scanTable streams table's rows, row id ascending, into materialized
// rows carrying qualified column names.
func scanTable(d *db.Database, s source) ([]row, error) {
	cur, err := d.NewTableCursor(s.table.Name)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	cols := tableColumns(s.table, s.alias)
	var out []row
	if err := cur.First(); err != nil {
		return nil, err
	}
	for cur.Valid() {
		vals, err := value.DecodeRow(cur.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, row{cols: cols, values: vals})
		if err := cur.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// indexEqualityScan serves a WHERE clause that is a single equality
// between a column and a constant directly off a single-column index,
// per SPEC_FULL.md §4.9's planner note, instead of a full table scan.
// ok is false whenever the shape doesn't apply (no such equality, no
// matching index, a join-qualified column) and the caller must fall
// back to scanTable.
func indexEqualityScan(d *db.Database, s source, where ast.Expr, params []value.Value) (rows []row, ok bool, err error) {
	eq, isEq := where.(*ast.BinaryExpr)
	if !isEq || eq.Op != ast.Eq {
		return nil, false, nil
	}
	colExpr, litExpr, matched := splitEquality(eq)
	if !matched {
		return nil, false, nil
	}
	ref := colExpr.(*ast.ColumnRef)
	if ref.Table != "" && !strings.EqualFold(ref.Table, s.alias) && !strings.EqualFold(ref.Table, s.table.Name) {
		return nil, false, nil
	}
	colIdx := s.table.ColumnIndex(ref.Column)
	if colIdx < 0 {
		return nil, false, nil
	}
	idx, ok := d.SingleColumnIndexOn(s.table.Name, colIdx)
	if !ok {
		return nil, false, nil
	}

	v, err := evalExpr(env{params: params}, litExpr)
	if err != nil {
		return nil, false, err
	}
	key := value.EncodeRow([]value.Value{v})
	rowKeys, err := d.IndexEqualLookup(idx.Name, key)
	if err != nil {
		return nil, false, err
	}

	cols := tableColumns(s.table, s.alias)
	out := make([]row, 0, len(rowKeys))
	for _, rk := range rowKeys {
		vals, err := d.RowByID(s.table.Name, db.DecodeRowID(rk))
		if err != nil {
			return nil, false, err
		}
		out = append(out, row{cols: cols, values: vals})
	}
	return out, true, nil
}

// splitEquality reports whether one side of eq is a bare column
// reference and the other a literal or bind parameter, returning them
// as (column, constant) regardless of which side they appeared on.
func splitEquality(eq *ast.BinaryExpr) (column, constant ast.Expr, ok bool) {
	if isColumnRef(eq.X) && isConstExpr(eq.Y) {
		return eq.X, eq.Y, true
	}
	if isColumnRef(eq.Y) && isConstExpr(eq.X) {
		return eq.Y, eq.X, true
	}
	return nil, nil, false
}

func isColumnRef(e ast.Expr) bool {
	_, ok := e.(*ast.ColumnRef)
	return ok
}

func isConstExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Literal, *ast.Param:
		return true
	default:
		return false
	}
}

func filterRows(rows []row, params []value.Value, where ast.Expr) ([]row, error) {
	if where == nil {
		return rows, nil
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		v, err := evalExpr(env{row: r, params: params}, where)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			out = append(out, r)
		}
	}
	return out, nil
}

// concatRow merges two rows' qualified columns into one combined row,
// the unit a JOIN produces per matched (or NULL-padded) pair.
func concatRow(a, b row) row {
	cols := make([]string, 0, len(a.cols)+len(b.cols))
	vals := make([]value.Value, 0, len(a.values)+len(b.values))
	cols = append(cols, a.cols...)
	cols = append(cols, b.cols...)
	vals = append(vals, a.values...)
	vals = append(vals, b.values...)
	return row{cols: cols, values: vals}
}

func nullRow(cols []string) row {
	vals := make([]value.Value, len(cols))
	for i := range vals {
		vals[i] = value.NewNull()
	}
	return row{cols: cols, values: vals}
}
