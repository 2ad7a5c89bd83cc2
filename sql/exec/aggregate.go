package exec

import (
	"strings"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// groupKey returns the encoded GROUP BY tuple for r, the map key a
// hash-partitioned GROUP BY buckets rows under. An empty groupBy list
// yields one constant key, folding every row into the single implicit
// group spec.md §9 names as the ungrouped fallback.
func groupKey(r row, params []value.Value, groupBy []ast.Expr) (string, error) {
	if len(groupBy) == 0 {
		return "", nil
	}
	vals := make([]value.Value, len(groupBy))
	for i, g := range groupBy {
		v, err := evalExpr(env{row: r, params: params}, g)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	return string(value.EncodeRow(vals)), nil
}

// evalGroupExpr evaluates expr over a group of rows: aggregate
// function calls (COUNT/SUM/AVG/MIN/MAX) are computed across the
// whole group; every other subexpression evaluates against the
// group's representative (first) row, the GROUP BY analogue of
// spec.md §4.9's per-row evaluation rules.
func evalGroupExpr(rows []row, params []value.Value, expr ast.Expr) (value.Value, error) {
	switch x := expr.(type) {
	case *ast.BinaryExpr:
		l, err := evalGroupExpr(rows, params, x.X)
		if err != nil {
			return value.Value{}, err
		}
		r, err := evalGroupExpr(rows, params, x.Y)
		if err != nil {
			return value.Value{}, err
		}
		return evalBinaryValues(x.Op, l, r)
	case *ast.UnaryExpr:
		v, err := evalGroupExpr(rows, params, x.X)
		if err != nil {
			return value.Value{}, err
		}
		return evalUnaryValue(x.Op, v)
	case *ast.IsNullExpr:
		v, err := evalGroupExpr(rows, params, x.X)
		if err != nil {
			return value.Value{}, err
		}
		isNull := v.IsNull()
		if x.Not {
			isNull = !isNull
		}
		return boolValue(isNull), nil
	case *ast.FuncCall:
		if isAggregate(x.Name) {
			return evalAggregate(rows, params, x)
		}
	}
	rep := row{}
	if len(rows) > 0 {
		rep = rows[0]
	}
	return evalExpr(env{row: rep, params: params}, expr)
}

func evalBinaryValues(op ast.BinaryOp, l, r value.Value) (value.Value, error) {
	return evalBinary(env{}, &ast.BinaryExpr{Op: op, X: litOf(l), Y: litOf(r)})
}

func evalUnaryValue(op ast.UnaryOp, v value.Value) (value.Value, error) {
	return evalUnary(env{}, &ast.UnaryExpr{Op: op, X: litOf(v)})
}

// litOf wraps an already-evaluated Value as a Literal so it can be fed
// back through the scalar evaluator's operator logic without
// duplicating the Null-propagation and promotion rules.
func litOf(v value.Value) ast.Expr { return &wrappedValue{v: v} }

// wrappedValue is an ast.Expr that carries a pre-evaluated value.Value,
// recognized only by evalExpr's *wrappedValue case.
type wrappedValue struct{ v value.Value }

func evalAggregate(rows []row, params []value.Value, f *ast.FuncCall) (value.Value, error) {
	switch strings.ToUpper(f.Name) {
	case "COUNT":
		if f.Star {
			return value.NewInt64(int64(len(rows))), nil
		}
		var n int64
		for _, r := range rows {
			v, err := evalExpr(env{row: r, params: params}, f.Args[0])
			if err != nil {
				return value.Value{}, err
			}
			if !v.IsNull() {
				n++
			}
		}
		return value.NewInt64(n), nil

	case "SUM", "AVG":
		var sum float64
		var count int64
		allInt := true
		for _, r := range rows {
			v, err := evalExpr(env{row: r, params: params}, arg(f))
			if err != nil {
				return value.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if v.Kind != value.Int64 {
				allInt = false
			}
			sum += asFloat(v)
			count++
		}
		if count == 0 {
			return value.NewNull(), nil
		}
		if strings.ToUpper(f.Name) == "AVG" {
			return value.NewFloat64(sum / float64(count)), nil
		}
		if allInt {
			return value.NewInt64(int64(sum)), nil
		}
		return value.NewFloat64(sum), nil

	case "MIN", "MAX":
		var best value.Value
		have := false
		for _, r := range rows {
			v, err := evalExpr(env{row: r, params: params}, arg(f))
			if err != nil {
				return value.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if !have {
				best, have = v, true
				continue
			}
			cmp := value.Compare(v, best)
			if (strings.ToUpper(f.Name) == "MIN" && cmp < 0) || (strings.ToUpper(f.Name) == "MAX" && cmp > 0) {
				best = v
			}
		}
		if !have {
			return value.NewNull(), nil
		}
		return best, nil

	default:
		return value.Value{}, dberr.New(dberr.Misuse, "unknown aggregate function: "+f.Name)
	}
}

func arg(f *ast.FuncCall) ast.Expr {
	if len(f.Args) == 0 {
		return &ast.Literal{Kind: ast.LitNull, IsNull: true}
	}
	return f.Args[0]
}
