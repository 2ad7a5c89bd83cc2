package parser

import (
	"testing"

	"github.com/kjm99d/SpeedSQL/sql/ast"
)

func parseOne(t *testing.T, sql string) ast.Statement {
	t.Helper()
	p := New(sql)
	stmt, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	return stmt
}

func TestParseSimpleSelect(t *testing.T) {
	stmt := parseOne(t, "SELECT id, name FROM t WHERE id > 1")
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		t.Fatalf("expected *ast.SelectStmt, got %T", stmt)
	}
	if len(sel.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(sel.Columns))
	}
	if sel.From == nil || sel.From.Name != "t" {
		t.Fatalf("expected FROM t, got %+v", sel.From)
	}
	bin, ok := sel.Where.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.Gt {
		t.Fatalf("expected WHERE id > 1 as BinaryExpr(Gt), got %#v", sel.Where)
	}
}

func TestParseSelectOrderByLimitOffset(t *testing.T) {
	stmt := parseOne(t, "SELECT name FROM t ORDER BY score DESC LIMIT 2 OFFSET 1")
	sel := stmt.(*ast.SelectStmt)
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Desc {
		t.Fatalf("expected one DESC order term, got %+v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 2 {
		t.Fatalf("expected LIMIT 2, got %+v", sel.Limit)
	}
	if sel.Offset == nil || *sel.Offset != 1 {
		t.Fatalf("expected OFFSET 1, got %+v", sel.Offset)
	}
}

func TestParseJoinClause(t *testing.T) {
	stmt := parseOne(t, "SELECT a.id FROM a LEFT JOIN b ON a.id = b.a_id")
	sel := stmt.(*ast.SelectStmt)
	if len(sel.Joins) != 1 {
		t.Fatalf("expected 1 join, got %d", len(sel.Joins))
	}
	jc := sel.Joins[0]
	if jc.Kind != ast.LeftJoin || jc.Table.Name != "b" {
		t.Fatalf("unexpected join clause: %+v", jc)
	}
	if jc.On == nil {
		t.Fatal("expected ON condition")
	}
}

func TestParseInsertValues(t *testing.T) {
	stmt := parseOne(t, "INSERT INTO t VALUES (1, 'Alice'), (2, 'Bob')")
	ins, ok := stmt.(*ast.InsertStmt)
	if !ok {
		t.Fatalf("expected *ast.InsertStmt, got %T", stmt)
	}
	if ins.Table != "t" || len(ins.Rows) != 2 || len(ins.Rows[0]) != 2 {
		t.Fatalf("unexpected insert shape: %+v", ins)
	}
}

func TestParseUpdateAndDelete(t *testing.T) {
	upd := parseOne(t, "UPDATE t SET name = 'x' WHERE id = 1").(*ast.UpdateStmt)
	if upd.Table != "t" || len(upd.Assignments) != 1 {
		t.Fatalf("unexpected update: %+v", upd)
	}
	del := parseOne(t, "DELETE FROM t WHERE id = 1").(*ast.DeleteStmt)
	if del.Table != "t" || del.Where == nil {
		t.Fatalf("unexpected delete: %+v", del)
	}
}

func TestParseCreateTable(t *testing.T) {
	stmt := parseOne(t, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	ct, ok := stmt.(*ast.CreateTableStmt)
	if !ok {
		t.Fatalf("expected *ast.CreateTableStmt, got %T", stmt)
	}
	if len(ct.Columns) != 2 || !ct.Columns[0].PrimaryKey || !ct.Columns[1].NotNull {
		t.Fatalf("unexpected columns: %+v", ct.Columns)
	}
}

func TestParseCreateUniqueIndex(t *testing.T) {
	stmt := parseOne(t, "CREATE UNIQUE INDEX idx_name ON t (name)")
	ci := stmt.(*ast.CreateIndexStmt)
	if !ci.Unique || ci.Index != "idx_name" || ci.Table != "t" || len(ci.Columns) != 1 {
		t.Fatalf("unexpected create index: %+v", ci)
	}
}

func TestParseTransactionControl(t *testing.T) {
	if _, ok := parseOne(t, "BEGIN").(*ast.BeginStmt); !ok {
		t.Fatal("expected BeginStmt")
	}
	if _, ok := parseOne(t, "COMMIT").(*ast.CommitStmt); !ok {
		t.Fatal("expected CommitStmt")
	}
	rb := parseOne(t, "ROLLBACK TO SAVEPOINT s").(*ast.RollbackStmt)
	if rb.To != "s" {
		t.Fatalf("expected rollback-to savepoint s, got %+v", rb)
	}
	sp := parseOne(t, "SAVEPOINT s").(*ast.SavepointStmt)
	if sp.Name != "s" {
		t.Fatalf("expected savepoint s, got %+v", sp)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 = 7, parsed as 1 + (2 * 3).
	stmt := parseOne(t, "SELECT 1 + 2 * 3")
	sel := stmt.(*ast.SelectStmt)
	top, ok := sel.Columns[0].Expr.(*ast.BinaryExpr)
	if !ok || top.Op != ast.Add {
		t.Fatalf("expected top-level Add, got %#v", sel.Columns[0].Expr)
	}
	right, ok := top.Y.(*ast.BinaryExpr)
	if !ok || right.Op != ast.Mul {
		t.Fatalf("expected right operand to be Mul, got %#v", top.Y)
	}
}

func TestPositionalParametersNumberInOrder(t *testing.T) {
	stmt := parseOne(t, "SELECT id FROM t WHERE name = ? AND age > ?")
	sel := stmt.(*ast.SelectStmt)
	and, ok := sel.Where.(*ast.BinaryExpr)
	if !ok || and.Op != ast.And {
		t.Fatalf("expected top-level AND, got %#v", sel.Where)
	}
	left := and.X.(*ast.BinaryExpr)
	right := and.Y.(*ast.BinaryExpr)
	p1 := left.Y.(*ast.Param)
	p2 := right.Y.(*ast.Param)
	if p1.Index != 1 || p2.Index != 2 {
		t.Fatalf("expected params numbered 1, 2, got %d, %d", p1.Index, p2.Index)
	}
}

func TestMultiStatementCursorAdvances(t *testing.T) {
	p := New("CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);")
	first, err := p.ParseStatement()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := first.(*ast.CreateTableStmt); !ok {
		t.Fatalf("expected CreateTableStmt first, got %T", first)
	}
	if p.AtEOF() {
		t.Fatal("expected more input after first statement")
	}
	second, err := p.ParseStatement()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second.(*ast.InsertStmt); !ok {
		t.Fatalf("expected InsertStmt second, got %T", second)
	}
	if !p.AtEOF() {
		t.Fatal("expected EOF after second statement")
	}
}

func TestParseErrorIsSticky(t *testing.T) {
	p := New("SELECT FROM")
	_, err := p.ParseStatement()
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if _, again := p.ParseStatement(); again == nil || again.Error() != err.Error() {
		t.Fatalf("expected the same error on a second call, got %v", again)
	}
}
