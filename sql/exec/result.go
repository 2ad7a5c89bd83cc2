package exec

import "github.com/kjm99d/SpeedSQL/storage/value"

// Result is the outcome of executing one statement: either a row set
// (SELECT) or a mutation count plus the row id it last assigned
// (INSERT/UPDATE/DELETE), per spec.md §6's Result surface.
type Result struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int64
	LastInsertID int64
}
