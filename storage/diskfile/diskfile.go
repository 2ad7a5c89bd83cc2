// Package diskfile owns the single on-disk database file: the raw
// os.File handle, page-addressed reads/writes, and page allocation.
// SpeedSQL is a single-file engine, so unlike a multi-file storage
// layer there is exactly one data file per open database (plus the
// WAL's own file, owned by package wal).
package diskfile

import (
	"fmt"
	"os"
	"sync"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// OpenFlags selects the access mode Open uses, mirroring db.OpenFlags'
// bitset at the file-handle level.
type OpenFlags uint32

const (
	FlagReadOnly  OpenFlags = 1 << 0
	FlagReadWrite OpenFlags = 1 << 1
	FlagCreate    OpenFlags = 1 << 2
)

// File wraps the database's primary file, serving whole pages at
// recordSize-aligned offsets. recordSize is page.Size for a plaintext
// file and page.Size+tag size once a cipher is installed, so an
// encrypted page's trailing authentication tag has room on disk
// without shrinking the page body.
type File struct {
	path       string
	f          *os.File
	mu         sync.RWMutex
	nextPageID uint32 // next unallocated local page number
	recordSize uint32
	readOnly   bool
}

// Open opens or creates path according to flags. FlagCreate selects
// O_CREATE; FlagReadOnly opens O_RDONLY and causes WritePage/Truncate
// to fail with dberr.ReadOnly. A zero flags value behaves like
// FlagReadWrite|FlagCreate, matching spec.md §6's "no flags" default.
func Open(path string, flags OpenFlags) (*File, error) {
	if flags == 0 {
		flags = FlagReadWrite | FlagCreate
	}
	readOnly := flags&FlagReadOnly != 0
	osFlags := os.O_RDWR
	if readOnly {
		osFlags = os.O_RDONLY
	}
	if flags&FlagCreate != 0 && !readOnly {
		osFlags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, osFlags, 0644)
	if err != nil {
		return nil, dberr.Wrap(dberr.CantOpen, "open database file", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.Wrap(dberr.IoError, "stat database file", err)
	}
	numPages := uint32(stat.Size() / page.Size)
	return &File{path: path, f: f, nextPageID: numPages, recordSize: page.Size, readOnly: readOnly}, nil
}

func (d *File) Path() string { return d.path }

// Size returns the number of pages currently allocated on disk.
func (d *File) Size() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nextPageID
}

// RecordSize returns the current on-disk stride between pages.
func (d *File) RecordSize() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recordSize
}

// SetRecordSize changes the on-disk stride between pages, used when a
// cipher is installed (page.Size+tag size) or removed (back to
// page.Size). It re-derives nextPageID from the file's current size
// under the new stride, since page count depends on it, but never
// lowers nextPageID: switching stride mid-session (Key on a database
// that already has its header page written at the old stride) must
// not hand out a local page number that page already occupies.
func (d *File) SetRecordSize(n uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	stat, err := d.f.Stat()
	if err != nil {
		return dberr.Wrap(dberr.IoError, "stat database file", err)
	}
	d.recordSize = n
	if derived := uint32(stat.Size() / int64(n)); derived > d.nextPageID {
		d.nextPageID = derived
	}
	return nil
}

// Allocate reserves the next local page number without writing it.
func (d *File) Allocate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.nextPageID
	d.nextPageID++
	return n
}

// ReadPage reads local page number n into dst.
func (d *File) ReadPage(n uint32, dst []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	off := int64(n) * int64(d.recordSize)
	read, err := d.f.ReadAt(dst, off)
	if err != nil && read == 0 {
		return dberr.Wrap(dberr.IoError, fmt.Sprintf("read page %d", n), err)
	}
	for i := read; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes src at local page number n.
func (d *File) WritePage(n uint32, src []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readOnly {
		return dberr.New(dberr.ReadOnly, fmt.Sprintf("write page %d on read-only file", n))
	}
	off := int64(n) * int64(d.recordSize)
	if _, err := d.f.WriteAt(src, off); err != nil {
		return dberr.Wrap(dberr.IoError, fmt.Sprintf("write page %d", n), err)
	}
	if n >= d.nextPageID {
		d.nextPageID = n + 1
	}
	return nil
}

// Truncate shrinks or grows the file to hold exactly newPageCount
// pages at the current record size.
func (d *File) Truncate(newPageCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readOnly {
		return dberr.New(dberr.ReadOnly, "truncate on read-only file")
	}
	size := int64(newPageCount) * int64(d.recordSize)
	if err := d.f.Truncate(size); err != nil {
		return dberr.Wrap(dberr.IoError, "truncate database file", err)
	}
	d.nextPageID = newPageCount
	return nil
}

func (d *File) Sync() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.f.Sync(); err != nil {
		return dberr.Wrap(dberr.IoError, "fsync database file", err)
	}
	return nil
}

func (d *File) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Close(); err != nil {
		return dberr.Wrap(dberr.IoError, "close database file", err)
	}
	return nil
}
