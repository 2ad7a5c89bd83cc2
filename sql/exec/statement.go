package exec

import (
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// Exec dispatches one parsed statement to the matching handler: DDL and
// transaction-control statements drive db.Database directly, DML goes
// through execInsert/execUpdate/execDelete, and SELECT goes through
// ExecSelect. Grounded on query_executor/vm.go's statement-kind switch.
func Exec(d *db.Database, stmt ast.Statement, params []value.Value) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return ExecSelect(d, s, params)
	case *ast.InsertStmt:
		return execInsert(d, s, params)
	case *ast.UpdateStmt:
		return execUpdate(d, s, params)
	case *ast.DeleteStmt:
		return execDelete(d, s, params)
	case *ast.CreateTableStmt:
		return execCreateTable(d, s)
	case *ast.DropTableStmt:
		return execDropTable(d, s)
	case *ast.CreateIndexStmt:
		return execCreateIndex(d, s)
	case *ast.DropIndexStmt:
		return execDropIndex(d, s)
	case *ast.BeginStmt:
		return &Result{}, d.Begin()
	case *ast.CommitStmt:
		return &Result{}, d.Commit()
	case *ast.RollbackStmt:
		if s.To != "" {
			return &Result{}, d.RollbackTo(s.To)
		}
		return &Result{}, d.Rollback()
	case *ast.SavepointStmt:
		return &Result{}, d.Savepoint(s.Name)
	case *ast.ReleaseStmt:
		return &Result{}, d.Release(s.Name)
	default:
		return nil, dberr.New(dberr.Misuse, "unsupported statement")
	}
}
