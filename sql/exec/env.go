// Package exec turns a parsed sql/ast.Statement into storage
// operations and result rows, per spec.md §4.9.
//
// Grounded on query_executor/vm.go (the step-driven statement loop)
// and query_executor/executor.go (DDL/DML dispatch), re-expressed over
// sql/ast instead of the teacher's string-keyed parser.Statement, and
// over db.Database's typed row API instead of the teacher's JSON-
// backed table files.
package exec

import (
	"strings"

	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// row is one materialized tuple flowing through expression evaluation
// and projection: the decoded column values plus the name→index map
// they resolve against (qualified "table.column" and bare "column").
type row struct {
	cols   []string // "table.column", lower-cased
	values []value.Value
}

func (r row) resolve(ref ast.ColumnRef) (value.Value, bool) {
	want := strings.ToLower(ref.Column)
	if ref.Table != "" {
		want = strings.ToLower(ref.Table) + "." + want
		for i, c := range r.cols {
			if c == want {
				return r.values[i], true
			}
		}
		return value.Value{}, false
	}
	for i, c := range r.cols {
		if c == want || strings.HasSuffix(c, "."+want) {
			return r.values[i], true
		}
	}
	return value.Value{}, false
}

// tableColumns builds a row's qualified column-name list for a single
// table scan, e.g. {"t.id", "t.name"} using alias if given.
func tableColumns(t *catalog.Table, alias string) []string {
	name := t.Name
	if alias != "" {
		name = alias
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = strings.ToLower(name) + "." + strings.ToLower(c.Name)
	}
	return out
}

// env is the evaluation context for one expression: the current row
// (if any) and the bound parameters.
type env struct {
	row    row
	params []value.Value
}

func (e env) param(idx int) (value.Value, error) {
	if idx < 1 || idx > len(e.params) {
		return value.Value{}, dberr.New(dberr.Range, "bind parameter index out of range")
	}
	return e.params[idx-1], nil
}
