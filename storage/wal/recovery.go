package wal

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/kjm99d/SpeedSQL/dberr"
)

// txnOutcome classifies a transaction id by the last record type seen
// for it during recovery's first pass.
type txnOutcome int

const (
	outcomeInFlight txnOutcome = iota
	outcomeCommitted
	outcomeRolledBack
)

// Recover implements spec.md §4.5's two-pass redo protocol: classify
// every transaction id as committed/rolled-back/in-flight by scanning
// once, then replay every page record belonging to a committed
// transaction into sink. Records belonging to aborted or in-flight
// transactions are discarded. A partial or corrupt record stops the
// scan at the last fully valid record; nothing past that point is
// trusted or replayed.
func Recover(path string, pageSize uint32, sink PageSink) error {
	l, err := Open(path, pageSize)
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.readAllValidRecords()
	if err != nil {
		return err
	}

	outcome := make(map[uint64]txnOutcome)
	for _, rec := range records {
		txn := recordTxnOf(rec)
		switch recordTypeOf(rec) {
		case TypeCommit:
			outcome[txn] = outcomeCommitted
		case TypeRollback:
			outcome[txn] = outcomeRolledBack
		default:
			if _, seen := outcome[txn]; !seen {
				outcome[txn] = outcomeInFlight
			}
		}
	}

	for _, rec := range records {
		if recordTypeOf(rec) != TypePage {
			continue
		}
		txn := recordTxnOf(rec)
		if outcome[txn] != outcomeCommitted {
			continue
		}
		dataLen := recordDataLenOf(rec)
		payload := rec[recordHeaderSize : recordHeaderSize+dataLen]
		after := payload[len(payload)/2:]
		pageID := recordPageIDOf(rec)
		if err := sink.WritePage(uint32(pageID), after); err != nil {
			return err
		}
	}

	if err := sink.Sync(); err != nil {
		return err
	}

	l.mu.Lock()
	l.checkpointLSN = l.currentLSN
	err = l.writeHeader()
	l.mu.Unlock()
	return err
}

// readAllValidRecords scans records from just past the header,
// returning every record up to (but not including) the first one that
// fails its CRC or runs past the end of the file -- spec's "partial or
// corrupt records stop the scan" rule.
func (l *Log) readAllValidRecords() ([][]byte, error) {
	stat, err := l.f.Stat()
	if err != nil {
		return nil, dberr.Wrap(dberr.IoError, "stat wal file", err)
	}
	size := stat.Size()
	off := int64(HeaderSize)

	var records [][]byte
	for off < size {
		fixed := make([]byte, recordHeaderSize)
		n, err := l.f.ReadAt(fixed, off)
		if err != nil || n < recordHeaderSize {
			break
		}
		dataLen := int64(binary.LittleEndian.Uint32(fixed[28:32]))
		total := int64(recordHeaderSize) + dataLen + 4
		if off+total > size {
			break
		}
		rec := make([]byte, total)
		if _, err := l.f.ReadAt(rec, off); err != nil {
			break
		}
		wantCRC := binary.LittleEndian.Uint32(rec[total-4:])
		gotCRC := crc32.ChecksumIEEE(rec[:total-4])
		if wantCRC != gotCRC {
			break
		}
		records = append(records, rec)
		off += total
	}
	return records, nil
}
