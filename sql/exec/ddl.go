package exec

import (
	"strings"

	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/db"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// kindFromTypeName maps a CREATE TABLE column type keyword to the
// storage Kind it is backed by; unrecognized names default to Text,
// matching SQLite-family "type affinity" rather than rejecting the
// statement outright.
func kindFromTypeName(name string) value.Kind {
	switch strings.ToUpper(name) {
	case "INT", "INTEGER", "BIGINT":
		return value.Int64
	case "FLOAT", "REAL", "DOUBLE":
		return value.Float64
	case "BLOB":
		return value.Blob
	case "JSON":
		return value.Json
	case "VECTOR":
		return value.Vector
	default:
		return value.Text
	}
}

func columnDefsToCatalog(cols []ast.ColumnDef) []catalog.Column {
	out := make([]catalog.Column, len(cols))
	for i, c := range cols {
		var flags catalog.ColFlag
		if c.NotNull {
			flags |= catalog.NotNull
		}
		if c.Unique {
			flags |= catalog.Unique
		}
		if c.PrimaryKey {
			flags |= catalog.PrimaryKey
		}
		if c.AutoIncrement {
			flags |= catalog.AutoIncrement
		}
		out[i] = catalog.Column{Name: c.Name, Type: kindFromTypeName(c.Type), Flags: flags}
	}
	return out
}

func execCreateTable(d *db.Database, stmt *ast.CreateTableStmt) (*Result, error) {
	if err := d.CreateTable(stmt.Table, columnDefsToCatalog(stmt.Columns)); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func execDropTable(d *db.Database, stmt *ast.DropTableStmt) (*Result, error) {
	if err := d.DropTable(stmt.Table); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func execCreateIndex(d *db.Database, stmt *ast.CreateIndexStmt) (*Result, error) {
	table, _, ok := d.Table(stmt.Table)
	if !ok {
		return nil, dberrNoSuchTable(stmt.Table)
	}
	colIdx := make([]int, len(stmt.Columns))
	for i, name := range stmt.Columns {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return nil, dberrNoSuchColumn(name)
		}
		colIdx[i] = idx
	}
	if err := d.CreateIndex(stmt.Index, stmt.Table, colIdx, stmt.Unique); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func execDropIndex(d *db.Database, stmt *ast.DropIndexStmt) (*Result, error) {
	if err := d.DropIndex(stmt.Index); err != nil {
		return nil, err
	}
	return &Result{}, nil
}
