package exec

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/parser"
)

// PlanCache memoizes the parsed AST for repeated SQL text, so a
// statement re-prepared on every call (the common pattern for
// connection pools that don't hold onto a *Stmt) skips lexing and
// parsing on a cache hit. It never memoizes execution results --
// storage state changes underneath it on every statement -- only the
// parse step, which is pure in the SQL text.
//
// Grounded on the teacher's declared but unwired ristretto/v2
// dependency (see go.mod); the buffer pool cannot use it without
// breaking spec.md's exact pin-count/LRU guarantee (see
// storage/bufferpool), so this is ristretto's home in the engine.
type PlanCache struct {
	c *ristretto.Cache[string, ast.Statement]
}

// NewPlanCache builds a plan cache sized for approximately maxPlans
// cached statements.
func NewPlanCache(maxPlans int64) (*PlanCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, ast.Statement]{
		NumCounters: maxPlans * 10,
		MaxCost:     maxPlans,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &PlanCache{c: c}, nil
}

// Close releases the cache's background goroutines.
func (pc *PlanCache) Close() { pc.c.Close() }

// Parse returns the cached AST for sql if present, otherwise parses it
// with sql/parser and stores the result (successful parses only) for
// next time.
func (pc *PlanCache) Parse(sql string) (ast.Statement, error) {
	if v, ok := pc.c.Get(sql); ok {
		return v, nil
	}
	p := parser.New(sql)
	stmt, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	pc.c.Set(sql, stmt, 1)
	pc.c.Wait()
	return stmt, nil
}
