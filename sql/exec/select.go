package exec

import (
	"sort"
	"strings"

	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// ExecSelect runs a SELECT per spec.md §4.9: scan the named table(s),
// fold in any JOINs, filter by WHERE, then either aggregate (GROUP BY
// or a bare aggregate SELECT list) or project row by row, finally
// sorting and slicing for ORDER BY/LIMIT/OFFSET. There is no cost-based
// planner: a WHERE that is one column = constant equality is served off
// a single-column index when indexEqualityScan finds one, every other
// scan is a full leaf-chain walk, and joins are always nested-loop in
// the order written, per the Non-goals' excluded cost-based planning.
func ExecSelect(d *db.Database, stmt *ast.SelectStmt, params []value.Value) (*Result, error) {
	var rows []row
	var err error
	if stmt.From == nil {
		// No FROM clause: a single implicit row for evaluating constant
		// or parameter-only expressions, e.g. `SELECT 1+1`.
		rows = []row{{}}
	} else {
		var base source
		base, err = resolveSource(d, *stmt.From)
		if err != nil {
			return nil, err
		}
		// Only attempt the index shortcut for a plain single-table scan:
		// once joins are involved the WHERE clause may reference either
		// side, so resolveSource/scanTable's table-at-a-time shape no
		// longer applies.
		if len(stmt.Joins) == 0 && stmt.Where != nil {
			var served bool
			rows, served, err = indexEqualityScan(d, base, stmt.Where, params)
			if err != nil {
				return nil, err
			}
			if !served {
				rows, err = scanTable(d, base)
			}
		} else {
			rows, err = scanTable(d, base)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, jc := range stmt.Joins {
		rows, err = applyJoin(d, rows, jc, params)
		if err != nil {
			return nil, err
		}
	}
	rows, err = filterRows(rows, params, stmt.Where)
	if err != nil {
		return nil, err
	}

	aggregating := len(stmt.GroupBy) > 0 || anyAggregate(stmt.Columns)

	var outCols []string
	var outRows [][]value.Value
	if aggregating {
		outCols, outRows, err = execAggregate(rows, params, stmt)
		if err != nil {
			return nil, err
		}
		if len(stmt.OrderBy) > 0 {
			if err := sortRows(outCols, outRows, params, stmt.OrderBy); err != nil {
				return nil, err
			}
		}
	} else {
		// Sort the full-scope source rows before projection, per
		// spec.md §4.9: an ORDER BY term may name a column that isn't
		// in the SELECT list at all (or is qualified, e.g. "t.col"),
		// and only the source row still carries every column in scope.
		if len(stmt.OrderBy) > 0 {
			if err := sortSourceRows(rows, params, stmt.OrderBy); err != nil {
				return nil, err
			}
		}
		outCols, outRows, err = projectRows(rows, params, stmt.Columns)
		if err != nil {
			return nil, err
		}
	}

	outRows = applyLimitOffset(outRows, stmt.Limit, stmt.Offset)

	return &Result{Columns: outCols, Rows: outRows}, nil
}

func anyAggregate(cols []ast.SelectColumn) bool {
	for _, c := range cols {
		if containsAggregate(c.Expr) {
			return true
		}
	}
	return false
}

func containsAggregate(expr ast.Expr) bool {
	switch x := expr.(type) {
	case *ast.FuncCall:
		if isAggregate(x.Name) {
			return true
		}
		for _, a := range x.Args {
			if containsAggregate(a) {
				return true
			}
		}
	case *ast.BinaryExpr:
		return containsAggregate(x.X) || containsAggregate(x.Y)
	case *ast.UnaryExpr:
		return containsAggregate(x.X)
	case *ast.IsNullExpr:
		return containsAggregate(x.X)
	}
	return false
}

// projectRows evaluates the SELECT list against each source row with
// no grouping; a bare `*` expands to every column currently in scope.
func projectRows(rows []row, params []value.Value, cols []ast.SelectColumn) ([]string, [][]value.Value, error) {
	names := projectedNames(rows, cols)
	out := make([][]value.Value, 0, len(rows))
	for _, r := range rows {
		vals, err := projectOne(r, params, cols)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	return names, out, nil
}

func projectOne(r row, params []value.Value, cols []ast.SelectColumn) ([]value.Value, error) {
	var vals []value.Value
	for _, c := range cols {
		if _, ok := c.Expr.(*ast.Star); ok {
			vals = append(vals, r.values...)
			continue
		}
		v, err := evalExpr(env{row: r, params: params}, c.Expr)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func projectedNames(rows []row, cols []ast.SelectColumn) []string {
	sample := row{}
	if len(rows) > 0 {
		sample = rows[0]
	}
	var names []string
	for _, c := range cols {
		if _, ok := c.Expr.(*ast.Star); ok {
			names = append(names, sample.cols...)
			continue
		}
		names = append(names, columnLabel(c))
	}
	return names
}

func columnLabel(c ast.SelectColumn) string {
	if c.Alias != "" {
		return c.Alias
	}
	if ref, ok := c.Expr.(*ast.ColumnRef); ok {
		return ref.Column
	}
	return exprLabel(c.Expr)
}

// exprLabel produces a readable fallback header for an unaliased
// computed column, e.g. "COUNT(*)" -- spec.md leaves the exact text
// unspecified, so this mirrors what a human would write by hand.
func exprLabel(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.FuncCall:
		if x.Star {
			return x.Name + "(*)"
		}
		return x.Name + "(...)"
	default:
		return "expr"
	}
}

func execAggregate(rows []row, params []value.Value, stmt *ast.SelectStmt) ([]string, [][]value.Value, error) {
	order := []string{}
	groups := map[string][]row{}
	for _, r := range rows {
		key, err := groupKey(r, params, stmt.GroupBy)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if len(rows) == 0 && len(stmt.GroupBy) == 0 {
		// COUNT(*) etc. over an empty table still produce one row.
		order = append(order, "")
		groups[""] = nil
	}

	names := make([]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		names[i] = columnLabel(c)
	}

	var out [][]value.Value
	for _, key := range order {
		grp := groups[key]
		if stmt.Having != nil {
			hv, err := evalGroupExpr(grp, params, stmt.Having)
			if err != nil {
				return nil, nil, err
			}
			if !truthy(hv) {
				continue
			}
		}
		vals := make([]value.Value, len(stmt.Columns))
		for i, c := range stmt.Columns {
			v, err := evalGroupExpr(grp, params, c.Expr)
			if err != nil {
				return nil, nil, err
			}
			vals[i] = v
		}
		out = append(out, vals)
	}
	return names, out, nil
}

// sortSourceRows stable-sorts full-scope source rows in place by the
// ORDER BY terms, evaluated against each row's own columns -- which
// still include every table/column in scope, unlike the projected
// output rows sortRows works over for an aggregate result.
func sortSourceRows(rows []row, params []value.Value, order []ast.OrderTerm) error {
	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		for _, t := range order {
			va, err := evalExpr(env{row: rows[a], params: params}, t.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			vb, err := evalExpr(env{row: rows[b], params: params}, t.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			cmp := value.Compare(va, vb)
			if cmp == 0 {
				continue
			}
			if t.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func sortRows(cols []string, rows [][]value.Value, params []value.Value, order []ast.OrderTerm) error {
	type keyer struct {
		expr ast.Expr
		desc bool
		idx  int // index into cols, if the term is a bare output-column reference
	}
	terms := make([]keyer, len(order))
	for i, t := range order {
		terms[i] = keyer{expr: t.Expr, desc: t.Desc, idx: -1}
		if ref, ok := t.Expr.(*ast.ColumnRef); ok && ref.Table == "" {
			for j, c := range cols {
				if strings.EqualFold(c, ref.Column) {
					terms[i].idx = j
					break
				}
			}
		}
	}

	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		for _, t := range terms {
			var va, vb value.Value
			if t.idx >= 0 {
				va, vb = rows[a][t.idx], rows[b][t.idx]
			} else {
				outRow := func(vals []value.Value) row { return row{cols: cols, values: vals} }
				var err error
				va, err = evalExpr(env{row: outRow(rows[a]), params: params}, t.expr)
				if err != nil {
					sortErr = err
					return false
				}
				vb, err = evalExpr(env{row: outRow(rows[b]), params: params}, t.expr)
				if err != nil {
					sortErr = err
					return false
				}
			}
			cmp := value.Compare(va, vb)
			if cmp == 0 {
				continue
			}
			if t.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func applyLimitOffset(rows [][]value.Value, limit, offset *int64) [][]value.Value {
	start := int64(0)
	if offset != nil {
		start = *offset
	}
	if start >= int64(len(rows)) {
		return nil
	}
	if start < 0 {
		start = 0
	}
	rows = rows[start:]
	if limit != nil && *limit >= 0 && *limit < int64(len(rows)) {
		rows = rows[:*limit]
	}
	return rows
}
