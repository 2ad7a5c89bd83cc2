package db

import (
	"github.com/kjm99d/SpeedSQL/dberr"
)

// Begin opens an explicit transaction. Per spec.md §4.6, calling Begin
// while already inside a transaction is a Misuse error.
func (d *Database) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txnState != TxnNone {
		return d.setErr(dberr.New(dberr.Misuse, "already in a transaction"))
	}
	d.startTxnLocked()
	return d.setErr(nil)
}

// startTxnLocked assigns a fresh transaction id, opens the buffer
// pool's before-image recording, and writes the WAL's begin record.
// Caller holds d.mu.
func (d *Database) startTxnLocked() {
	d.txnID++
	d.txnState = TxnWrite
	d.savepoints = d.savepoints[:0]
	d.pool.StartRecording()
	if d.walLog != nil {
		d.walLog.Begin(d.txnID)
	}
}

// ensureTxn starts an implicit autocommit transaction if no explicit
// one is open. Every mutating operation (INSERT/UPDATE/DELETE/DDL)
// calls this before touching any page. It also resolves a schema load
// deferred by Open, so a mutating call against an encrypted-but-not-
// yet-keyed connection fails with the schema decode error instead of
// silently operating on an empty catalog.
func (d *Database) ensureTxn() (implicit bool, err error) {
	if err := d.ensureSchemaLoaded(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txnState != TxnNone {
		return false, nil
	}
	d.startTxnLocked()
	return true, nil
}

// Commit makes the current transaction's page mutations durable: every
// page touched since Begin is written to the WAL as a before/after
// image pair, then a commit record forces an fsync. Per spec.md §4.3,
// the WAL record must exist before the page is eligible for
// writeback, which FlushGate already enforces.
func (d *Database) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txnState == TxnNone {
		return d.setErr(nil)
	}

	shadow := d.pool.StopRecording()
	if d.walLog != nil {
		for pageID, before := range shadow {
			after, err := d.pool.Snapshot(pageID)
			if err != nil {
				return d.setErr(err)
			}
			lsn, err := d.walLog.Page(d.txnID, uint64(pageID), before, after)
			if err != nil {
				return d.setErr(err)
			}
			if err := d.pool.StampLSN(pageID, uint32(lsn)); err != nil {
				return d.setErr(err)
			}
		}
		if _, err := d.walLog.Commit(d.txnID); err != nil {
			return d.setErr(err)
		}
	}

	if err := d.pool.FlushAll(); err != nil {
		return d.setErr(err)
	}

	d.txnState = TxnNone
	d.savepoints = d.savepoints[:0]
	return d.setErr(nil)
}

// Rollback discards every page mutation made since Begin, restoring
// each touched page's pre-transaction image in the buffer pool, and
// records an abort in the WAL.
func (d *Database) Rollback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txnState == TxnNone {
		return d.setErr(nil)
	}

	shadow := d.pool.StopRecording()
	d.pool.Restore(shadow)
	if d.walLog != nil {
		if _, err := d.walLog.Rollback(d.txnID); err != nil {
			return d.setErr(err)
		}
	}

	d.txnState = TxnNone
	d.savepoints = d.savepoints[:0]
	return d.setErr(nil)
}

// finishAutocommit closes an implicit transaction opened by ensureTxn,
// committing on success and rolling back on failure.
func (d *Database) finishAutocommit(implicit bool, opErr error) error {
	if !implicit {
		return opErr
	}
	if opErr != nil {
		d.Rollback()
		return opErr
	}
	return d.Commit()
}
