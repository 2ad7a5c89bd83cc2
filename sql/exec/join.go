package exec

import (
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// applyJoin nested-loop joins left against table/alias join, per
// spec.md §9's supplemented JOIN resolution: every left row is paired
// with every right row whose ON condition (if any) is truthy; LEFT and
// RIGHT additionally emit an unmatched side's row once, padded with
// NULLs on the other side. There is no join-order planning: tables are
// joined left to right in the order they appear in the query, matching
// the Non-goals' exclusion of cost-based planning.
func applyJoin(d *db.Database, left []row, jc ast.JoinClause, params []value.Value) ([]row, error) {
	rs, err := resolveSource(d, jc.Table)
	if err != nil {
		return nil, err
	}
	right, err := scanTable(d, rs)
	if err != nil {
		return nil, err
	}
	rightCols := tableColumns(rs.table, rs.alias)

	var out []row
	switch jc.Kind {
	case ast.LeftJoin:
		for _, l := range left {
			matched := false
			for _, r := range right {
				combined := concatRow(l, r)
				ok, err := joinMatches(combined, params, jc.On)
				if err != nil {
					return nil, err
				}
				if ok {
					matched = true
					out = append(out, combined)
				}
			}
			if !matched {
				out = append(out, concatRow(l, nullRow(rightCols)))
			}
		}
	case ast.RightJoin:
		for _, r := range right {
			matched := false
			for _, l := range left {
				combined := concatRow(l, r)
				ok, err := joinMatches(combined, params, jc.On)
				if err != nil {
					return nil, err
				}
				if ok {
					matched = true
					out = append(out, combined)
				}
			}
			if !matched {
				leftCols := leftColumnsOf(left)
				out = append(out, concatRow(nullRow(leftCols), r))
			}
		}
	default: // InnerJoin
		for _, l := range left {
			for _, r := range right {
				combined := concatRow(l, r)
				ok, err := joinMatches(combined, params, jc.On)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, combined)
				}
			}
		}
	}
	return out, nil
}

func joinMatches(combined row, params []value.Value, on ast.Expr) (bool, error) {
	if on == nil {
		return true, nil
	}
	v, err := evalExpr(env{row: combined, params: params}, on)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// leftColumnsOf recovers the accumulated left-side column names for a
// RIGHT JOIN's unmatched-row padding; the left side may itself be the
// result of earlier joins, so its column list is read off any row
// rather than re-derived from a single table.
func leftColumnsOf(left []row) []string {
	if len(left) == 0 {
		return nil
	}
	return left[0].cols
}
