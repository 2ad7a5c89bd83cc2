// Package db implements SpeedSQL's Database: the owner of the file,
// buffer pool, optional WAL, schema cache, transaction state,
// savepoint stack, and cipher context. It is the layer sql/exec drives
// to turn parsed statements into storage operations.
//
// Grounded on query_executor/vm.go (WAL-before-apply ordering) and
// storage_engine/transaction_manager/main.go + rollback_helpers.go
// (Begin/Commit/Abort, undo-by-counter-restore) and
// storage_engine/checkpoint_manager/*.
package db

import (
	"log/slog"
	"os"
	"sync"

	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/btree"
	"github.com/kjm99d/SpeedSQL/storage/bufferpool"
	"github.com/kjm99d/SpeedSQL/storage/crypto"
	"github.com/kjm99d/SpeedSQL/storage/diskfile"
	"github.com/kjm99d/SpeedSQL/storage/page"
	"github.com/kjm99d/SpeedSQL/storage/wal"
)

// DefaultCacheBytes is the buffer pool's default size, per spec.md §4.6.
const DefaultCacheBytes = 256 * 1024 * 1024

// OpenFlags mirrors spec.md §6's bitset.
type OpenFlags uint32

const (
	FlagReadOnly  OpenFlags = 1 << 0
	FlagReadWrite OpenFlags = 1 << 1
	FlagCreate    OpenFlags = 1 << 2
	FlagMemory    OpenFlags = 1 << 3
	FlagNoMutex   OpenFlags = 1 << 4
	FlagFullMutex OpenFlags = 1 << 5
	FlagWAL       OpenFlags = 1 << 6
)

// TxnState is the connection's current transaction state machine.
type TxnState int

const (
	TxnNone TxnState = iota
	TxnRead
	TxnWrite
)

// Savepoint is one entry on the savepoint stack: spec.md §3's
// {name, LSN, saved last-row-id, saved total-changes} tuple.
type Savepoint struct {
	Name              string
	LSN               uint64
	SavedLastRowID    int64
	SavedTotalChanges int64

	// pageSnapshot holds each already-dirty page's bytes at the moment
	// this savepoint was created, for RollbackTo's partial undo.
	pageSnapshot map[int64][]byte
}

const maxSavepointDepth = 32

// Database is one open connection: file + buffer pool + optional WAL +
// schema + transaction/savepoint state + cipher context. The spec
// treats "connection" and "database" as the same object; so does this
// package.
type Database struct {
	mu sync.Mutex // guards txn/savepoint state

	path   string
	memory bool

	file       *diskfile.File
	pool       *bufferpool.Pool
	walLog     *wal.Log
	cipher     crypto.Provider
	cipherName string
	cipherSalt []byte // persisted KDF salt, recovered from the header on Open

	schemaMu          sync.RWMutex
	cat               *catalog.Catalog
	tables            map[string]*btree.Tree
	indices           map[string]*btree.Tree
	schemaRootLocal   uint32
	schemaAllocated   bool
	freePages         []uint32
	pendingSchemaRoot uint32 // set by Open when an encrypted file's schema page can't be decoded yet

	txnState     TxnState
	txnID        uint64
	lastRowID    int64
	totalChanges int64
	savepoints   []Savepoint

	errCode dberr.Code
	errMsg  string

	log *slog.Logger
}

func isMemoryPath(path string) bool { return path == "" || path == ":memory:" }

// Open opens or creates the database at path, per spec.md §4.6's open
// sequence.
func Open(path string, flags OpenFlags) (*Database, error) {
	d := &Database{
		path:    path,
		memory:  isMemoryPath(path) || flags&FlagMemory != 0,
		cat:     catalog.New(),
		tables:  map[string]*btree.Tree{},
		indices: map[string]*btree.Tree{},
		log:     slog.Default().With("component", "db"),
	}

	if d.memory {
		return d.openMemory()
	}

	f, err := diskfile.Open(path, translateOpenFlags(flags))
	if err != nil {
		return nil, err
	}
	d.file = f

	isNew := f.Size() == 0
	var hdr fileHeader
	if isNew {
		hdr = newFileHeader()
		if err := f.WritePage(0, hdr.encode()); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		buf := make([]byte, page.Size)
		if err := f.ReadPage(0, buf); err != nil {
			f.Close()
			return nil, err
		}
		hdr, err = decodeFileHeader(buf)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	d.txnID = hdr.TxnID
	d.cipherSalt = hdr.CipherSalt
	d.cipherName = hdr.CipherName

	if hdr.CipherName != "" {
		if err := f.SetRecordSize(page.Size + crypto.TagSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	d.pool = bufferpool.New(f, DefaultCacheBytes/page.Size)

	if flags&FlagWAL != 0 {
		// Replay any committed page images left by a prior crash before
		// the schema is loaded, per spec.md §4.5's recovery protocol.
		if err := wal.Recover(path+"-wal", page.Size, f); err != nil {
			f.Close()
			return nil, err
		}
		if wl, err := wal.Open(path+"-wal", page.Size); err == nil {
			d.walLog = wl
			d.pool.SetFlushGate(wl)
		}
		// per spec: WAL open failure is non-fatal, continue without it.
	}

	if !isNew && hdr.SchemaRoot != InvalidPage {
		if hdr.CipherName == "" {
			if err := d.loadSchema(uint32(hdr.SchemaRoot)); err != nil {
				f.Close()
				return nil, err
			}
		} else {
			// The schema page is still ciphertext; defer decoding it
			// until Key installs a working cipher. ensureSchemaLoaded
			// resolves this on the first mutating operation or Key call.
			d.pendingSchemaRoot = uint32(hdr.SchemaRoot)
		}
	}

	return d, nil
}

// translateOpenFlags maps the connection-level open bitset onto
// diskfile's narrower file-handle flags.
func translateOpenFlags(flags OpenFlags) diskfile.OpenFlags {
	if flags&FlagReadOnly != 0 {
		return diskfile.FlagReadOnly
	}
	out := diskfile.FlagReadWrite
	if flags&FlagCreate != 0 || flags == 0 {
		out |= diskfile.FlagCreate
	}
	return out
}

// openMemory sets up a connection with no backing file at all: the
// file header and schema live purely in the buffer pool's resident
// pages, keyed against an anonymous, never-persisted temp file so the
// existing diskfile/bufferpool machinery can still serve page I/O.
func (d *Database) openMemory() (*Database, error) {
	tmp, err := os.CreateTemp("", "speedsql-memory-*.db")
	if err != nil {
		return nil, dberr.Wrap(dberr.CantOpen, "allocate memory-backed scratch file", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	f, err := diskfile.Open(tmpPath, diskfile.FlagReadWrite|diskfile.FlagCreate)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	d.file = f
	d.path = tmpPath

	hdr := newFileHeader()
	if err := f.WritePage(0, hdr.encode()); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	d.pool = bufferpool.New(f, DefaultCacheBytes/page.Size)
	return d, nil
}

// Close tears down the connection in reverse of acquisition order: if
// the schema is non-empty it is rewritten first, then dirty pages are
// flushed, then the WAL and file handles close.
func (d *Database) Close() error {
	d.schemaMu.RLock()
	nonEmpty := !d.cat.IsEmpty()
	d.schemaMu.RUnlock()
	if nonEmpty {
		if err := d.persistSchema(); err != nil {
			return err
		}
	}
	if err := d.pool.FlushAll(); err != nil {
		return err
	}
	if err := d.file.Sync(); err != nil {
		return err
	}
	if d.walLog != nil {
		if err := d.walLog.Close(); err != nil {
			return err
		}
	}
	if err := d.file.Close(); err != nil {
		return err
	}
	if d.memory {
		os.Remove(d.path)
	}
	return nil
}

// setErr records the most recent failure for read-only inspection,
// per spec.md §4.6's connection-level error state.
func (d *Database) setErr(err error) error {
	if err == nil {
		d.errCode = dberr.OK
		d.errMsg = ""
		return nil
	}
	d.errCode = dberr.CodeOf(err)
	d.errMsg = err.Error()
	return err
}

func (d *Database) LastError() (dberr.Code, string) { return d.errCode, d.errMsg }

func (d *Database) LastRowID() int64 { return d.lastRowID }

func (d *Database) TotalChanges() int64 { return d.totalChanges }

func (d *Database) TxnState() TxnState { return d.txnState }

func (d *Database) Pool() *bufferpool.Pool { return d.pool }
