package exec

import (
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/parser"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// ExecSQL implements spec.md §4.9's multi-statement exec entry point:
// sql may hold several statements separated by whitespace/semicolons.
// Each is parsed and driven to completion in turn; the loop stops and
// returns the results gathered so far on the first error, mirroring
// query_executor/vm.go's Execute loop but over the parser's own
// statement-at-a-time cursor instead of a flat instruction slice.
func ExecSQL(d *db.Database, sql string) ([]*Result, error) {
	p := parser.New(sql)
	var results []*Result
	for !p.AtEOF() {
		stmt, err := p.ParseStatement()
		if err != nil {
			return results, err
		}
		if stmt == nil {
			// blank tail (trailing semicolon/whitespace only)
			break
		}
		res, err := Exec(d, stmt, nil)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ExecCached is the single-statement counterpart to ExecSQL for
// callers that re-run the same SQL text repeatedly with different
// bound parameters (the common "prepare once, execute many" shape):
// cache skips re-lexing and re-parsing on a hit.
func ExecCached(d *db.Database, cache *PlanCache, sql string, params []value.Value) (*Result, error) {
	stmt, err := cache.Parse(sql)
	if err != nil {
		return nil, err
	}
	return Exec(d, stmt, params)
}
