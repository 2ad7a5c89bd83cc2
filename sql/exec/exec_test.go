package exec

import (
	"testing"

	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/parser"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

func openMemDB(t *testing.T) *db.Database {
	t.Helper()
	conn, err := db.Open(":memory:", 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustExecSQL(t *testing.T, d *db.Database, sql string) []*Result {
	t.Helper()
	results, err := ExecSQL(d, sql)
	if err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
	return results
}

func mustExecOne(t *testing.T, d *db.Database, sql string, params []value.Value) *Result {
	t.Helper()
	p := parser.New(sql)
	stmt, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	res, err := Exec(d, stmt, params)
	if err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
	return res
}

// TestCreateInsertSelect covers spec.md §8 scenario 1.
func TestCreateInsertSelect(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO t VALUES (1,'Alice'),(2,'Bob'),(3,'Charlie');`)

	res := mustExecOne(t, d, "SELECT id, name FROM t WHERE id > 1", nil)
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(res.Rows), res.Rows)
	}
	if res.Rows[0][1].Text() != "Bob" || res.Rows[1][1].Text() != "Charlie" {
		t.Fatalf("unexpected row order/content: %+v", res.Rows)
	}
}

// TestPreparedParameterRebind covers spec.md §8 scenario 2.
func TestPreparedParameterRebind(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO t VALUES (1,'Alice'),(2,'Bob');`)

	res := mustExecOne(t, d, "SELECT id FROM t WHERE name = ?", []value.Value{value.NewText("Bob")})
	if len(res.Rows) != 1 || res.Rows[0][0].Int64() != 2 {
		t.Fatalf("expected one row with id 2, got %+v", res.Rows)
	}

	res = mustExecOne(t, d, "SELECT id FROM t WHERE name = ?", []value.Value{value.NewText("Zed")})
	if len(res.Rows) != 0 {
		t.Fatalf("expected zero rows for unmatched bind, got %+v", res.Rows)
	}
}

// TestTransactionRollback covers spec.md §8 scenario 3.
func TestTransactionRollback(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, "CREATE TABLE u (v INTEGER)")
	mustExecSQL(t, d, "INSERT INTO u VALUES (1)")
	mustExecSQL(t, d, "BEGIN")
	mustExecSQL(t, d, "INSERT INTO u VALUES (2)")
	mustExecSQL(t, d, "ROLLBACK")

	res := mustExecOne(t, d, "SELECT COUNT(*) FROM u", nil)
	if len(res.Rows) != 1 || res.Rows[0][0].Int64() != 1 {
		t.Fatalf("expected COUNT(*) = 1 after rollback, got %+v", res.Rows)
	}
}

// TestSavepointRollbackTo covers spec.md §8 scenario 4.
func TestSavepointRollbackTo(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, "CREATE TABLE u (v INTEGER)")
	mustExecSQL(t, d, "BEGIN")
	mustExecSQL(t, d, "INSERT INTO u VALUES (10)")
	mustExecSQL(t, d, "SAVEPOINT s")
	mustExecSQL(t, d, "INSERT INTO u VALUES (11)")
	mustExecSQL(t, d, "ROLLBACK TO SAVEPOINT s")
	mustExecSQL(t, d, "COMMIT")

	res := mustExecOne(t, d, "SELECT v FROM u ORDER BY v", nil)
	if len(res.Rows) != 1 || res.Rows[0][0].Int64() != 10 {
		t.Fatalf("expected single row v=10 after rollback-to, got %+v", res.Rows)
	}
}

// TestOrderByDescLimit covers spec.md §8 scenario 5.
func TestOrderByDescLimit(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (name TEXT, score INTEGER);
		INSERT INTO t VALUES ('A', 85), ('B', 92), ('C', 78);`)

	res := mustExecOne(t, d, "SELECT name FROM t ORDER BY score DESC LIMIT 2", nil)
	if len(res.Rows) != 2 || res.Rows[0][0].Text() != "B" || res.Rows[1][0].Text() != "A" {
		t.Fatalf("unexpected top-2 order: %+v", res.Rows)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO t VALUES (1,'Alice'),(2,'Bob');`)

	mustExecSQL(t, d, "UPDATE t SET name = 'Robert' WHERE id = 2")
	res := mustExecOne(t, d, "SELECT name FROM t WHERE id = 2", nil)
	if res.Rows[0][0].Text() != "Robert" {
		t.Fatalf("expected update to apply, got %+v", res.Rows)
	}

	mustExecSQL(t, d, "DELETE FROM t WHERE id = 1")
	res = mustExecOne(t, d, "SELECT id FROM t", nil)
	if len(res.Rows) != 1 || res.Rows[0][0].Int64() != 2 {
		t.Fatalf("expected only id=2 remaining, got %+v", res.Rows)
	}
}

func TestInnerAndLeftJoin(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, item TEXT);
		INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob');
		INSERT INTO orders VALUES (1, 1, 'Widget');`)

	inner := mustExecOne(t, d, "SELECT users.name FROM users JOIN orders ON users.id = orders.user_id", nil)
	if len(inner.Rows) != 1 || inner.Rows[0][0].Text() != "Alice" {
		t.Fatalf("unexpected inner join result: %+v", inner.Rows)
	}

	left := mustExecOne(t, d, "SELECT users.name FROM users LEFT JOIN orders ON users.id = orders.user_id ORDER BY users.name", nil)
	if len(left.Rows) != 2 {
		t.Fatalf("expected 2 rows from left join, got %+v", left.Rows)
	}
}

func TestGroupByAggregates(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE sales (region TEXT, amount INTEGER);
		INSERT INTO sales VALUES ('east', 10), ('east', 20), ('west', 5);`)

	res := mustExecOne(t, d, "SELECT region, SUM(amount) FROM sales GROUP BY region ORDER BY region", nil)
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %+v", res.Rows)
	}
	if res.Rows[0][0].Text() != "east" || res.Rows[0][1].Int64() != 30 {
		t.Fatalf("unexpected east group: %+v", res.Rows[0])
	}
	if res.Rows[1][0].Text() != "west" || res.Rows[1][1].Int64() != 5 {
		t.Fatalf("unexpected west group: %+v", res.Rows[1])
	}
}

func TestCreateUniqueIndexRejectsDuplicate(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (id INTEGER, name TEXT);
		INSERT INTO t VALUES (1, 'a'), (2, 'a');`)
	_, err := ExecSQL(d, "CREATE UNIQUE INDEX idx_name ON t (name)")
	if err == nil {
		t.Fatal("expected unique index population to fail on duplicate values")
	}
}

func TestCreateIndexNonUniqueDuplicateValues(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, `CREATE TABLE t (id INTEGER, name TEXT);
		INSERT INTO t VALUES (1, 'a'), (2, 'a'), (3, 'b');`)

	if _, err := ExecSQL(d, "CREATE INDEX idx_name ON t (name)"); err != nil {
		t.Fatalf("non-unique index population on duplicate values: %v", err)
	}

	res := mustExecOne(t, d, "SELECT id FROM t WHERE name = 'a' ORDER BY id", nil)
	if len(res.Rows) != 2 || res.Rows[0][0].Int64() != 1 || res.Rows[1][0].Int64() != 2 {
		t.Fatalf("expected rows 1 and 2 for name = 'a', got %+v", res.Rows)
	}

	res = mustExecOne(t, d, "SELECT id FROM t WHERE name = 'b'", nil)
	if len(res.Rows) != 1 || res.Rows[0][0].Int64() != 3 {
		t.Fatalf("expected row 3 for name = 'b', got %+v", res.Rows)
	}
}

func TestPlanCacheReparsesOnMiss(t *testing.T) {
	d := openMemDB(t)
	mustExecSQL(t, d, "CREATE TABLE t (id INTEGER)")
	cache, err := NewPlanCache(16)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if _, err := ExecCached(d, cache, "INSERT INTO t VALUES (1)", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ExecCached(d, cache, "INSERT INTO t VALUES (2)", nil); err != nil {
		t.Fatal(err)
	}
	res, err := ExecCached(d, cache, "SELECT id FROM t ORDER BY id", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", res.Rows)
	}
}
