package wal

import "github.com/kjm99d/SpeedSQL/dberr"

// Checkpoint flushes the WAL buffer, asks the caller to flush every
// dirty buffer-pool page (flushDirty), writes a checkpoint record,
// updates the header, and truncates the WAL file back to just the
// header -- the current LSN resumes at checkpointLSN+1, per spec.md
// §4.5.
func (l *Log) Checkpoint(flushDirty func() error) error {
	if err := l.Flush(); err != nil {
		return err
	}
	if err := flushDirty(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	checkpointTxn := uint64(0)
	l.appendRecord(checkpointTxn, TypeCheckpoint, 0, nil)
	if err := l.flushLocked(); err != nil {
		return err
	}
	if err := l.f.Sync(); err != nil {
		return dberr.Wrap(dberr.IoError, "fsync wal checkpoint", err)
	}

	l.checkpointLSN = l.currentLSN
	l.durableLSN = l.currentLSN

	if err := l.f.Truncate(HeaderSize); err != nil {
		return dberr.Wrap(dberr.IoError, "truncate wal", err)
	}
	l.currentLSN = l.checkpointLSN + 1
	return l.writeHeader()
}
