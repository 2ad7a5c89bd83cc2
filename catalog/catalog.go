// Package catalog holds SpeedSQL's in-memory schema -- the set of
// table and index definitions -- and serializes it to and from the
// single binary schema page spec.md §3/§6 prescribes.
//
// Grounded on types/table.go (ColumnDef/TableSchema) and the
// persistence flow in query_executor/exec_create_table.go, re-
// expressed as one fixed binary page instead of the teacher's one
// JSON file per table: the teacher's field names (Name, Columns,
// RootPage) survive, the JSON encoding does not.
package catalog

import (
	"encoding/binary"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/storage/page"
	"github.com/kjm99d/SpeedSQL/storage/value"
)

// ColFlag is a bitset of per-column constraints.
type ColFlag uint8

const (
	NotNull ColFlag = 1 << iota
	Unique
	PrimaryKey
	AutoIncrement
	Indexed
)

// Column is one column of a table definition.
type Column struct {
	Name  string
	Type  value.Kind
	Flags ColFlag
}

func (c Column) Has(f ColFlag) bool { return c.Flags&f != 0 }

// TableFlag is a bitset of per-table attributes; reserved for future
// use (e.g. WITHOUT ROWID), currently always zero.
type TableFlag uint8

// Table is a table definition: its columns and the root page of the
// B+ tree holding its rows, keyed by row id.
type Table struct {
	Name     string
	Columns  []Column
	RootPage uint32
	KeySize  int
	Flags    TableFlag
}

func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Index is a secondary index definition: a root page of its own
// B+ tree, keyed by the encoded indexed column value(s).
type Index struct {
	Name     string
	Table    string
	Columns  []int // indices into the owning table's Columns
	RootPage uint32
	KeySize  int
	Unique   bool
}

// Catalog is the full live schema of one database.
type Catalog struct {
	Tables  map[string]*Table
	Indices map[string]*Index
}

func New() *Catalog {
	return &Catalog{Tables: map[string]*Table{}, Indices: map[string]*Index{}}
}

func (c *Catalog) AddTable(t *Table) error {
	if _, exists := c.Tables[t.Name]; exists {
		return dberr.New(dberr.Constraint, "table already exists: "+t.Name)
	}
	c.Tables[t.Name] = t
	return nil
}

func (c *Catalog) DropTable(name string) error {
	if _, exists := c.Tables[name]; !exists {
		return dberr.New(dberr.NotFound, "no such table: "+name)
	}
	delete(c.Tables, name)
	for idxName, idx := range c.Indices {
		if idx.Table == name {
			delete(c.Indices, idxName)
		}
	}
	return nil
}

func (c *Catalog) AddIndex(idx *Index) error {
	if _, exists := c.Indices[idx.Name]; exists {
		return dberr.New(dberr.Constraint, "index already exists: "+idx.Name)
	}
	c.Indices[idx.Name] = idx
	return nil
}

func (c *Catalog) DropIndex(name string) error {
	if _, exists := c.Indices[name]; !exists {
		return dberr.New(dberr.NotFound, "no such index: "+name)
	}
	delete(c.Indices, name)
	return nil
}

func (c *Catalog) IsEmpty() bool { return len(c.Tables) == 0 && len(c.Indices) == 0 }

// schemaPageCapacity is the byte budget for the serialized schema,
// one page body's worth; spec.md has no overflow story for the schema
// page, so a schema too large to fit is a Full error, not a chain.
const schemaPageCapacity = page.Size - page.HeaderSize

// Encode serializes the catalog into the binary layout spec.md §3
// describes: page type byte, table count, index count, then each
// table's {name, column count, root page, flags, key size, per-column{name,type,flags}},
// then each index's {name, table, column count, root page, flags, key size, column indices}.
func (c *Catalog) Encode() ([]byte, error) {
	buf := make([]byte, 0, 4096)
	buf = append(buf, byte(page.TypeSchema))
	buf = appendU16(buf, uint16(len(c.Tables)))
	buf = appendU16(buf, uint16(len(c.Indices)))

	for _, t := range c.Tables {
		buf = appendString(buf, t.Name)
		buf = appendU16(buf, uint16(len(t.Columns)))
		buf = appendU64(buf, uint64(t.RootPage))
		buf = append(buf, byte(t.Flags))
		buf = appendU16(buf, uint16(t.KeySize))
		for _, col := range t.Columns {
			buf = appendString(buf, col.Name)
			buf = append(buf, byte(col.Type))
			buf = append(buf, byte(col.Flags))
		}
	}

	for _, idx := range c.Indices {
		buf = appendString(buf, idx.Name)
		buf = appendString(buf, idx.Table)
		buf = appendU32(buf, uint32(len(idx.Columns)))
		buf = appendU64(buf, uint64(idx.RootPage))
		flags := byte(0)
		if idx.Unique {
			flags = 1
		}
		buf = append(buf, flags)
		buf = appendU16(buf, uint16(idx.KeySize))
		for _, ci := range idx.Columns {
			buf = appendU32(buf, uint32(ci))
		}
	}

	if len(buf) > schemaPageCapacity {
		return nil, dberr.New(dberr.Full, "schema too large for one page")
	}
	return buf, nil
}

// Decode parses a schema page body previously produced by Encode.
func Decode(buf []byte) (*Catalog, error) {
	c := New()
	r := &reader{buf: buf}

	typ := r.byte()
	if page.Type(typ) != page.TypeSchema {
		return nil, dberr.New(dberr.Corrupt, "schema page: bad type byte")
	}
	tableCount := r.u16()
	indexCount := r.u16()
	if r.err != nil {
		return nil, r.err
	}

	for i := 0; i < int(tableCount); i++ {
		name := r.string()
		colCount := r.u16()
		root := r.u64()
		flags := r.byte()
		keySize := r.u16()
		cols := make([]Column, colCount)
		for j := range cols {
			cols[j] = Column{Name: r.string(), Type: value.Kind(r.byte()), Flags: ColFlag(r.byte())}
		}
		if r.err != nil {
			return nil, r.err
		}
		c.Tables[name] = &Table{
			Name:     name,
			Columns:  cols,
			RootPage: uint32(root),
			KeySize:  int(keySize),
			Flags:    TableFlag(flags),
		}
	}

	for i := 0; i < int(indexCount); i++ {
		name := r.string()
		table := r.string()
		colCount := r.u32()
		root := r.u64()
		flags := r.byte()
		keySize := r.u16()
		cols := make([]int, colCount)
		for j := range cols {
			cols[j] = int(r.u32())
		}
		if r.err != nil {
			return nil, r.err
		}
		c.Indices[name] = &Index{
			Name:     name,
			Table:    table,
			Columns:  cols,
			RootPage: uint32(root),
			KeySize:  int(keySize),
			Unique:   flags&1 != 0,
		}
	}

	return c, nil
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU16(buf, uint16(len(s)))
	return append(buf, []byte(s)...)
}

// reader is a small bounds-checked cursor over a byte slice; the
// first error encountered sticks, matching the parser's own
// stop-at-first-error discipline.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = dberr.New(dberr.Corrupt, "schema page: truncated")
		return false
	}
	return true
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

func (r *reader) string() string {
	n := r.u16()
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s
}
