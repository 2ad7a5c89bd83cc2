package exec

import (
	"strings"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// evalExpr implements spec.md §4.9's post-order expression evaluation
// rules: Null propagates through every operator but IS; arithmetic
// over two Ints stays Int, otherwise promotes to Float; comparisons
// produce 1/0 Int; AND/OR are non-short-circuiting truthy tests.
func evalExpr(e env, expr ast.Expr) (value.Value, error) {
	switch x := expr.(type) {
	case nil:
		return value.NewNull(), nil
	case *wrappedValue:
		return x.v, nil
	case *ast.Literal:
		switch x.Kind {
		case ast.LitNull:
			return value.NewNull(), nil
		case ast.LitInt:
			return value.NewInt64(x.Int), nil
		case ast.LitFloat:
			return value.NewFloat64(x.Float), nil
		default:
			return value.NewText(x.Str), nil
		}
	case *ast.Param:
		return e.param(x.Index)
	case *ast.ColumnRef:
		v, ok := e.row.resolve(*x)
		if !ok {
			return value.Value{}, dberr.New(dberr.NotFound, "no such column: "+x.Column)
		}
		return v, nil
	case *ast.Star:
		return value.NewNull(), nil
	case *ast.UnaryExpr:
		return evalUnary(e, x)
	case *ast.BinaryExpr:
		return evalBinary(e, x)
	case *ast.IsNullExpr:
		v, err := evalExpr(e, x.X)
		if err != nil {
			return value.Value{}, err
		}
		isNull := v.IsNull()
		if x.Not {
			isNull = !isNull
		}
		return boolValue(isNull), nil
	case *ast.FuncCall:
		return evalScalarFunc(e, x)
	default:
		return value.Value{}, dberr.New(dberr.Misuse, "unsupported expression node")
	}
}

func boolValue(b bool) value.Value {
	if b {
		return value.NewInt64(1)
	}
	return value.NewInt64(0)
}

func truthy(v value.Value) bool {
	if v.IsNull() {
		return false
	}
	if v.Kind == value.Int64 {
		return v.Int64() != 0
	}
	if v.Kind == value.Float64 {
		return v.Float64() != 0
	}
	return true
}

func evalUnary(e env, x *ast.UnaryExpr) (value.Value, error) {
	v, err := evalExpr(e, x.X)
	if err != nil {
		return value.Value{}, err
	}
	switch x.Op {
	case ast.Neg:
		if v.IsNull() {
			return value.NewNull(), nil
		}
		if v.Kind == value.Int64 {
			return value.NewInt64(-v.Int64()), nil
		}
		return value.NewFloat64(-asFloat(v)), nil
	case ast.Not:
		if v.IsNull() {
			return value.NewNull(), nil
		}
		return boolValue(!truthy(v)), nil
	default:
		return value.Value{}, dberr.New(dberr.Misuse, "unknown unary operator")
	}
}

func asFloat(v value.Value) float64 {
	if v.Kind == value.Int64 {
		return float64(v.Int64())
	}
	return v.Float64()
}

func evalBinary(e env, x *ast.BinaryExpr) (value.Value, error) {
	// AND/OR propagate Null per spec.md §4.9 like every other operator;
	// the teacher's own evaluator has no short-circuit and neither does this one.
	l, err := evalExpr(e, x.X)
	if err != nil {
		return value.Value{}, err
	}
	r, err := evalExpr(e, x.Y)
	if err != nil {
		return value.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return value.NewNull(), nil
	}

	switch x.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return evalArith(x.Op, l, r)
	case ast.Eq:
		return boolValue(value.Compare(l, r) == 0), nil
	case ast.Ne:
		return boolValue(value.Compare(l, r) != 0), nil
	case ast.Lt:
		return boolValue(value.Compare(l, r) < 0), nil
	case ast.Le:
		return boolValue(value.Compare(l, r) <= 0), nil
	case ast.Gt:
		return boolValue(value.Compare(l, r) > 0), nil
	case ast.Ge:
		return boolValue(value.Compare(l, r) >= 0), nil
	case ast.And:
		return boolValue(truthy(l) && truthy(r)), nil
	case ast.Or:
		return boolValue(truthy(l) || truthy(r)), nil
	case ast.Like:
		return boolValue(matchLike(l.Text(), r.Text())), nil
	default:
		return value.Value{}, dberr.New(dberr.Misuse, "unknown binary operator")
	}
}

func evalArith(op ast.BinaryOp, l, r value.Value) (value.Value, error) {
	bothInt := l.Kind == value.Int64 && r.Kind == value.Int64
	if bothInt {
		a, b := l.Int64(), r.Int64()
		switch op {
		case ast.Add:
			return value.NewInt64(a + b), nil
		case ast.Sub:
			return value.NewInt64(a - b), nil
		case ast.Mul:
			return value.NewInt64(a * b), nil
		case ast.Div:
			if b == 0 {
				return value.NewNull(), nil
			}
			return value.NewInt64(a / b), nil
		case ast.Mod:
			if b == 0 {
				return value.NewNull(), nil
			}
			return value.NewInt64(a % b), nil
		}
	}
	a, b := asFloat(l), asFloat(r)
	switch op {
	case ast.Add:
		return value.NewFloat64(a + b), nil
	case ast.Sub:
		return value.NewFloat64(a - b), nil
	case ast.Mul:
		return value.NewFloat64(a * b), nil
	case ast.Div:
		if b == 0 {
			return value.NewNull(), nil
		}
		return value.NewFloat64(a / b), nil
	case ast.Mod:
		if b == 0 {
			return value.NewNull(), nil
		}
		return value.NewFloat64(float64(int64(a) % int64(b))), nil
	}
	return value.Value{}, dberr.New(dberr.Misuse, "unreachable arithmetic operator")
}

// matchLike implements SQL LIKE with `%` (any run) and `_` (any one
// character) wildcards, case-sensitive, via straightforward recursive
// matching (patterns in practice are short: no regex compilation).
func matchLike(s, pattern string) bool {
	return likeMatch(s, pattern)
}

func likeMatch(s, p string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			for i := 0; i <= len(s); i++ {
				if likeMatch(s[i:], p[1:]) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
			s, p = s[1:], p[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			s, p = s[1:], p[1:]
		}
	}
	return len(s) == 0
}

func isAggregate(name string) bool {
	switch strings.ToUpper(name) {
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return true
	default:
		return false
	}
}

// evalScalarFunc evaluates a non-aggregate function call. Aggregates
// are intercepted earlier, in the SELECT column-building pass, so
// reaching here with an aggregate name is a planning bug.
func evalScalarFunc(e env, f *ast.FuncCall) (value.Value, error) {
	if isAggregate(f.Name) {
		return value.Value{}, dberr.New(dberr.Misuse, "aggregate function outside aggregate context: "+f.Name)
	}
	return value.Value{}, dberr.New(dberr.Misuse, "unknown function: "+f.Name)
}
