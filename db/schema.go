package db

import (
	"github.com/kjm99d/SpeedSQL/catalog"
	"github.com/kjm99d/SpeedSQL/storage/btree"
	"github.com/kjm99d/SpeedSQL/storage/page"
)

// loadSchema reads the schema page at rootLocal and re-attaches a
// btree.Tree handle for every table and index it names, per spec.md
// §4.6's open sequence step 5.
func (d *Database) loadSchema(rootLocal uint32) error {
	pg, err := d.pool.Fetch(page.GlobalID(0, rootLocal))
	if err != nil {
		return err
	}
	body := append([]byte(nil), pg.Body()...)
	if err := d.pool.Unpin(pg.ID, false); err != nil {
		return err
	}

	cat, err := catalog.Decode(body)
	if err != nil {
		return err
	}
	d.schemaMu.Lock()
	d.cat = cat
	d.schemaRootLocal = rootLocal
	for _, t := range cat.Tables {
		d.tables[t.Name] = btree.Open(d.pool, compareRowKey, t.RootPage, t.KeySize)
	}
	for _, idx := range cat.Indices {
		d.indices[idx.Name] = btree.Open(d.pool, compareRowKey, idx.RootPage, idx.KeySize)
	}
	d.schemaMu.Unlock()
	return nil
}

// ensureSchemaLoaded resolves a schema load deferred by Open because
// the file was encrypted and no cipher had been installed yet. It is a
// no-op once the pending root has been consumed, and safe to call
// repeatedly (from Key and from every mutating entry point) before the
// cipher is ever installed, on the theory that decoding ciphertext as
// a catalog fails closed with dberr.Corrupt rather than silently
// operating against an empty schema.
func (d *Database) ensureSchemaLoaded() error {
	d.schemaMu.RLock()
	pending := d.pendingSchemaRoot
	d.schemaMu.RUnlock()
	if pending == 0 {
		return nil
	}
	if err := d.loadSchema(pending); err != nil {
		return err
	}
	d.schemaMu.Lock()
	d.pendingSchemaRoot = 0
	d.schemaMu.Unlock()
	return nil
}

// persistSchema serializes the catalog onto its schema page,
// allocating one lazily on first use, and records the root in the
// file header.
func (d *Database) persistSchema() error {
	d.schemaMu.Lock()
	// Splits move a tree's root and fix its key size after creation, so
	// record each live tree's current values before encoding.
	for name, tr := range d.tables {
		if t, ok := d.cat.Tables[name]; ok {
			t.RootPage, t.KeySize = tr.RootPage(), tr.KeySize()
		}
	}
	for name, tr := range d.indices {
		if idx, ok := d.cat.Indices[name]; ok {
			idx.RootPage, idx.KeySize = tr.RootPage(), tr.KeySize()
		}
	}
	buf, err := d.cat.Encode()
	d.schemaMu.Unlock()
	if err != nil {
		return err
	}

	var pg *page.Page
	if d.schemaRootLocal == 0 && !d.schemaAllocated {
		pg, err = d.pool.NewPage(0)
		if err != nil {
			return err
		}
		d.schemaRootLocal = page.LocalPageNum(pg.ID)
		d.schemaAllocated = true
	} else {
		pg, err = d.pool.Fetch(page.GlobalID(0, d.schemaRootLocal))
		if err != nil {
			return err
		}
	}

	copy(pg.Body(), buf)
	for i := len(buf); i < len(pg.Body()); i++ {
		pg.Body()[i] = 0
	}
	pg.WriteHeader(page.Header{Type: page.TypeSchema})
	if err := d.pool.Unpin(pg.ID, true); err != nil {
		return err
	}
	return d.writeHeaderPage()
}

func (d *Database) writeHeaderPage() error {
	hdr := newFileHeader()
	hdr.TxnID = d.txnID
	hdr.SchemaRoot = uint64(d.schemaRootLocal)
	hdr.PageCount = uint64(d.file.Size())
	hdr.CipherSalt = d.cipherSalt
	hdr.CipherName = d.cipherName
	return d.file.WritePage(0, hdr.encode())
}
