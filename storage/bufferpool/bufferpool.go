// Package bufferpool implements SpeedSQL's page cache: resident pages
// are chained into a Fibonacci-hashed bucket array and also kept in a
// map keyed by page id, which is what every lookup uses, plus a doubly linked list
// threading pages from most- to least-recently-used, with pin counts
// that block eviction and WAL-flushed-LSN gating that blocks writeback
// of pages whose redo record isn't durable yet.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/crypto"
	"github.com/kjm99d/SpeedSQL/storage/diskfile"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// FlushGate reports the highest LSN the WAL has made durable. A dirty
// page carrying a higher LSN than this cannot be written back yet --
// the WAL record covering it might still vanish on crash.
type FlushGate interface {
	FlushedLSN() uint32
}

type entry struct {
	pageID   int64
	local    uint32
	pg       *page.Page
	bucket   int
	bucketNx *entry // next entry chained in the same hash bucket
	prev, next *entry // LRU list: prev is more recently used
}

// Pool is the buffer pool. One Pool backs exactly one diskfile.File.
type Pool struct {
	mu       sync.Mutex
	file     *diskfile.File
	gate     FlushGate
	cipher   crypto.Provider // nil when the database is not encrypted

	buckets  []*entry // Fibonacci-hashed bucket array
	shift    uint      // 64 - log2(len(buckets))
	byID     map[int64]*entry
	mru, lru *entry
	capacity int

	recording bool
	shadow    map[int64][]byte // pageID -> pre-transaction image, captured at first touch
}

const goldenRatio64 = 11400714819323198485 // 2^64 / phi, rounded to odd

// New builds a pool backed by f with room for capacity pages. Per the
// spec's hashed-bucket-array sizing, the bucket count is the next
// power of two at or above max(17, 1.25*capacity).
func New(f *diskfile.File, capacity int) *Pool {
	nbuckets := nextPow2(maxInt(17, capacity+capacity/4))
	shift := uint(64)
	for n := nbuckets; n > 1; n >>= 1 {
		shift--
	}
	return &Pool{
		file:     f,
		buckets:  make([]*entry, nbuckets),
		shift:    shift,
		byID:     make(map[int64]*entry, capacity),
		capacity: capacity,
	}
}

func (p *Pool) SetFlushGate(g FlushGate) { p.mu.Lock(); p.gate = g; p.mu.Unlock() }

// StartRecording begins capturing a pre-transaction image of every
// page the caller touches, for the WAL's before-image page records.
func (p *Pool) StartRecording() {
	p.mu.Lock()
	p.recording = true
	p.shadow = make(map[int64][]byte)
	p.mu.Unlock()
}

// StopRecording ends image capture and returns the captured
// pageID -> pre-transaction-image map, clearing the pool's copy.
func (p *Pool) StopRecording() map[int64][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recording = false
	shadow := p.shadow
	p.shadow = nil
	return shadow
}

// captureShadow records pg's current bytes as its pre-transaction
// image, the first time this page is touched since StartRecording.
// Caller holds p.mu.
func (p *Pool) captureShadow(pg *page.Page) {
	if !p.recording {
		return
	}
	if _, seen := p.shadow[pg.ID]; seen {
		return
	}
	cp := make([]byte, page.Size)
	copy(cp, pg.Data[:])
	p.shadow[pg.ID] = cp
}

func (p *Pool) SetCipher(c crypto.Provider) { p.mu.Lock(); p.cipher = c; p.mu.Unlock() }

// Snapshot returns a copy of globalID's current resident bytes, used
// to build the WAL's after-image when committing a transaction.
func (p *Pool) Snapshot(globalID int64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[globalID]
	if !ok {
		return nil, dberr.New(dberr.NotFound, fmt.Sprintf("page %d not in buffer pool", globalID))
	}
	e.pg.RLock()
	defer e.pg.RUnlock()
	cp := make([]byte, page.Size)
	copy(cp, e.pg.Data[:])
	return cp, nil
}

// Restore overwrites every resident page named in shadow with its
// captured before-image and clears its dirty flag, undoing a rolled-
// back transaction's in-place mutations without touching disk.
func (p *Pool) Restore(shadow map[int64][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, before := range shadow {
		e, ok := p.byID[id]
		if !ok {
			continue
		}
		e.pg.Lock()
		copy(e.pg.Data[:], before)
		e.pg.IsDirty = false
		e.pg.Unlock()
	}
}

// RestoreOne overwrites a single resident page's bytes in place, for
// savepoint rollback. It leaves the dirty flag untouched: the page may
// still need to be re-flushed with its rolled-back content.
func (p *Pool) RestoreOne(globalID int64, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[globalID]
	if !ok {
		return
	}
	e.pg.Lock()
	copy(e.pg.Data[:], data)
	e.pg.Unlock()
}

// PeekShadow returns a copy of the currently-recording shadow map
// without ending recording, for savepoint rollback mid-transaction.
func (p *Pool) PeekShadow() map[int64][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int64][]byte, len(p.shadow))
	for k, v := range p.shadow {
		out[k] = v
	}
	return out
}

// SnapshotDirty returns a copy of every resident dirty page's current
// bytes, used to checkpoint per-page state at a savepoint.
func (p *Pool) SnapshotDirty() map[int64][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int64][]byte)
	for id, e := range p.byID {
		e.pg.RLock()
		if e.pg.IsDirty {
			cp := make([]byte, page.Size)
			copy(cp, e.pg.Data[:])
			out[id] = cp
		}
		e.pg.RUnlock()
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (p *Pool) hashBucket(id int64) int {
	h := uint64(id) * goldenRatio64
	return int(h >> p.shift)
}

// Fetch returns the page for globalID, loading it from disk (and
// decrypting it, if a cipher is installed) on a cache miss. The
// returned page's pin count is incremented; callers must Unpin it.
func (p *Pool) Fetch(globalID int64) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.byID[globalID]; ok {
		p.touch(e)
		p.captureShadow(e.pg)
		e.pg.Lock()
		e.pg.PinCount++
		e.pg.Unlock()
		return e.pg, nil
	}

	local := page.LocalPageNum(globalID)
	pg := page.New(globalID, page.FileIDOf(globalID))
	if p.cipher != nil {
		sealed := make([]byte, page.Size+p.cipher.TagSize())
		if err := p.file.ReadPage(local, sealed); err != nil {
			return nil, err
		}
		if err := p.decryptInPlace(pg, sealed); err != nil {
			return nil, err
		}
	} else if err := p.file.ReadPage(local, pg.Data[:]); err != nil {
		return nil, err
	}

	if err := p.insert(pg); err != nil {
		return nil, err
	}
	p.captureShadow(pg)
	pg.PinCount++
	return pg, nil
}

// NewPage allocates a fresh page on disk and places it in the pool,
// dirty and pinned, ready for the caller to format.
func (p *Pool) NewPage(fileID uint32) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	local := p.file.Allocate()
	globalID := page.GlobalID(fileID, local)
	pg := page.New(globalID, fileID)
	pg.IsDirty = true

	if err := p.insert(pg); err != nil {
		return nil, err
	}
	p.captureShadow(pg)
	pg.PinCount++
	return pg, nil
}

// Unpin decrements a page's pin count and optionally marks it dirty.
func (p *Pool) Unpin(globalID int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byID[globalID]
	if !ok {
		return dberr.New(dberr.NotFound, fmt.Sprintf("page %d not in buffer pool", globalID))
	}
	e.pg.Lock()
	if e.pg.PinCount > 0 {
		e.pg.PinCount--
	}
	if dirty {
		e.pg.IsDirty = true
	}
	e.pg.Unlock()
	return nil
}

// MarkDirty flags a resident page as dirty without touching its pin count.
func (p *Pool) MarkDirty(globalID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[globalID]
	if !ok {
		return dberr.New(dberr.NotFound, fmt.Sprintf("page %d not in buffer pool", globalID))
	}
	e.pg.Lock()
	e.pg.IsDirty = true
	e.pg.Unlock()
	return nil
}

// Flush writes a single dirty page back to disk, if the WAL has made
// its LSN durable.
func (p *Pool) Flush(globalID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[globalID]
	if !ok {
		return dberr.New(dberr.NotFound, fmt.Sprintf("page %d not in buffer pool", globalID))
	}
	return p.flushEntry(e)
}

// FlushAll writes back every dirty page whose LSN is WAL-durable.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.byID {
		if err := p.flushEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) flushEntry(e *entry) error {
	e.pg.Lock()
	defer e.pg.Unlock()
	if !e.pg.IsDirty {
		return nil
	}
	if p.gate != nil {
		if h := e.pg.ReadHeader(); uint64(h.LSN) > uint64(p.gate.FlushedLSN()) {
			return nil // not yet covered by the WAL; skip for now
		}
	}
	out := e.pg.Data[:]
	if p.cipher != nil {
		sealed, err := p.encryptSnapshot(e.pg)
		if err != nil {
			return err
		}
		out = sealed
	}
	if err := p.file.WritePage(e.local, out); err != nil {
		return err
	}
	e.pg.IsDirty = false
	return nil
}

// decryptInPlace opens sealed (ciphertext||tag, as read from disk) and
// copies the recovered plaintext into pg.Data. Caller holds p.mu.
func (p *Pool) decryptInPlace(pg *page.Page, sealed []byte) error {
	aad := crypto.PageAAD(pg.ID)
	plain, err := p.cipher.Decrypt(pg.ID, sealed, aad[:])
	if err != nil {
		return err
	}
	copy(pg.Data[:], plain)
	return nil
}

// encryptSnapshot seals pg's current plaintext bytes for writeback,
// returning ciphertext||tag sized page.Size+p.cipher.TagSize(). Caller
// holds pg's lock.
func (p *Pool) encryptSnapshot(pg *page.Page) ([]byte, error) {
	aad := crypto.PageAAD(pg.ID)
	return p.cipher.Encrypt(pg.ID, pg.Data[:], aad[:])
}

// StampLSN records the WAL LSN that made globalID's latest mutation
// durable into its page header, so flushEntry's FlushGate check can
// tell whether writeback is safe yet.
func (p *Pool) StampLSN(globalID int64, lsn uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[globalID]
	if !ok {
		return dberr.New(dberr.NotFound, fmt.Sprintf("page %d not in buffer pool", globalID))
	}
	e.pg.Lock()
	defer e.pg.Unlock()
	h := e.pg.ReadHeader()
	h.LSN = lsn
	e.pg.WriteHeader(h)
	return nil
}

func (p *Pool) insert(pg *page.Page) error {
	if _, exists := p.byID[pg.ID]; exists {
		return nil
	}
	if len(p.byID) >= p.capacity {
		if err := p.evict(); err != nil {
			return err
		}
	}
	e := &entry{pageID: pg.ID, local: page.LocalPageNum(pg.ID), pg: pg}
	e.bucket = p.hashBucket(pg.ID)
	e.bucketNx = p.buckets[e.bucket]
	p.buckets[e.bucket] = e
	p.byID[pg.ID] = e
	p.pushMRU(e)
	return nil
}

func (p *Pool) evict() error {
	for e := p.lru; e != nil; e = e.prev {
		e.pg.RLock()
		pinned := e.pg.PinCount > 0
		e.pg.RUnlock()
		if pinned {
			continue
		}
		if err := p.flushEntry(e); err != nil {
			return err
		}
		e.pg.RLock()
		stillDirty := e.pg.IsDirty
		e.pg.RUnlock()
		if stillDirty {
			continue // WAL hasn't caught up; try an older candidate
		}
		p.remove(e)
		return nil
	}
	return dberr.New(dberr.Full, "buffer pool full: every page is pinned")
}

func (p *Pool) remove(e *entry) {
	// unlink from hash bucket chain
	if head := p.buckets[e.bucket]; head == e {
		p.buckets[e.bucket] = e.bucketNx
	} else {
		for cur := head; cur != nil; cur = cur.bucketNx {
			if cur.bucketNx == e {
				cur.bucketNx = e.bucketNx
				break
			}
		}
	}
	p.unlink(e)
	delete(p.byID, e.pageID)
}

// touch moves e to the MRU end of the LRU list.
func (p *Pool) touch(e *entry) {
	if p.mru == e {
		return
	}
	p.unlink(e)
	p.pushMRU(e)
}

func (p *Pool) pushMRU(e *entry) {
	e.prev, e.next = nil, p.mru
	if p.mru != nil {
		p.mru.prev = e
	}
	p.mru = e
	if p.lru == nil {
		p.lru = e
	}
}

func (p *Pool) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		p.mru = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		p.lru = e.prev
	}
	e.prev, e.next = nil, nil
}

// Stats summarizes the pool's current occupancy for diagnostics.
type Stats struct {
	Resident int
	Pinned   int
	Dirty    int
	Capacity int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Resident: len(p.byID), Capacity: p.capacity}
	for _, e := range p.byID {
		e.pg.RLock()
		if e.pg.PinCount > 0 {
			s.Pinned++
		}
		if e.pg.IsDirty {
			s.Dirty++
		}
		e.pg.RUnlock()
	}
	return s
}

// String renders Stats with human-readable byte counts, wiring the
// teacher's declared-but-unused go-humanize dependency into diagnostics.
func (s Stats) String() string {
	resident := humanize.Bytes(uint64(s.Resident) * page.Size)
	capacity := humanize.Bytes(uint64(s.Capacity) * page.Size)
	return fmt.Sprintf("resident=%s/%s pinned=%d dirty=%d", resident, capacity, s.Pinned, s.Dirty)
}
