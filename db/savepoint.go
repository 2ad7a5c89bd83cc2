package db

import "github.com/kjm99d/SpeedSQL/dberr"

// Savepoint pushes a named marker onto the savepoint stack, per
// spec.md §4.6. A transaction is started implicitly if none is open,
// matching SQLite's SAVEPOINT-without-BEGIN behavior. Depth is capped
// at maxSavepointDepth and names must be unique within a transaction.
func (d *Database) Savepoint(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.txnState == TxnNone {
		d.startTxnLocked()
	}
	if len(d.savepoints) >= maxSavepointDepth {
		return d.setErr(dberr.New(dberr.Full, "savepoint stack is full"))
	}
	for _, sp := range d.savepoints {
		if sp.Name == name {
			return d.setErr(dberr.New(dberr.Constraint, "savepoint already exists: "+name))
		}
	}

	lsn := d.txnID
	if d.walLog != nil {
		if got, err := d.walLog.Savepoint(d.txnID, name); err == nil {
			lsn = got
		}
	}
	d.savepoints = append(d.savepoints, Savepoint{
		Name:              name,
		LSN:               lsn,
		SavedLastRowID:    d.lastRowID,
		SavedTotalChanges: d.totalChanges,
		pageSnapshot:      d.pool.SnapshotDirty(),
	})
	return d.setErr(nil)
}

// Release drops the named savepoint and every savepoint nested above
// it, keeping their mutations as part of the enclosing transaction.
func (d *Database) Release(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.findSavepointLocked(name)
	if idx < 0 {
		return d.setErr(dberr.New(dberr.NotFound, "no such savepoint: "+name))
	}
	if d.walLog != nil {
		d.walLog.Release(d.txnID, name)
	}
	d.savepoints = d.savepoints[:idx]
	return d.setErr(nil)
}

// RollbackTo undoes every page mutation made since the named
// savepoint was created, restores the connection's row-id and
// total-changes counters, and keeps the named savepoint itself open
// (matching SQLite's ROLLBACK TO semantics, as distinct from RELEASE).
func (d *Database) RollbackTo(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.findSavepointLocked(name)
	if idx < 0 {
		return d.setErr(dberr.New(dberr.NotFound, "no such savepoint: "+name))
	}
	sp := d.savepoints[idx]

	shadow := d.pool.PeekShadow()
	for pageID, txnStartImage := range shadow {
		if atSavepoint, ok := sp.pageSnapshot[pageID]; ok {
			d.pool.RestoreOne(pageID, atSavepoint)
		} else {
			d.pool.RestoreOne(pageID, txnStartImage)
		}
	}

	d.lastRowID = sp.SavedLastRowID
	d.totalChanges = sp.SavedTotalChanges
	d.savepoints = d.savepoints[:idx+1]

	if d.walLog != nil {
		d.walLog.RollbackTo(d.txnID, name)
	}
	return d.setErr(nil)
}

func (d *Database) findSavepointLocked(name string) int {
	for i := len(d.savepoints) - 1; i >= 0; i-- {
		if d.savepoints[i].Name == name {
			return i
		}
	}
	return -1
}
