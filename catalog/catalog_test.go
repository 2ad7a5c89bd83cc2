package catalog

import (
	"testing"

	"github.com/kjm99d/SpeedSQL/storage/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New()
	c.Tables["t"] = &Table{
		Name:     "t",
		RootPage: 3,
		KeySize:  8,
		Columns: []Column{
			{Name: "id", Type: value.Int64, Flags: PrimaryKey | NotNull},
			{Name: "name", Type: value.Text},
		},
	}
	c.Indices["idx_name"] = &Index{
		Name:     "idx_name",
		Table:    "t",
		Columns:  []int{1},
		RootPage: 9,
		KeySize:  32,
		Unique:   true,
	}

	buf, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}

	tbl, ok := got.Tables["t"]
	if !ok {
		t.Fatal("missing table t")
	}
	if tbl.RootPage != 3 || tbl.KeySize != 8 || len(tbl.Columns) != 2 {
		t.Fatalf("table round trip mismatch: %+v", tbl)
	}
	if tbl.Columns[0].Name != "id" || tbl.Columns[0].Type != value.Int64 || !tbl.Columns[0].Has(PrimaryKey) {
		t.Fatalf("column round trip mismatch: %+v", tbl.Columns[0])
	}

	idx, ok := got.Indices["idx_name"]
	if !ok {
		t.Fatal("missing index idx_name")
	}
	if idx.Table != "t" || idx.RootPage != 9 || !idx.Unique || len(idx.Columns) != 1 || idx.Columns[0] != 1 {
		t.Fatalf("index round trip mismatch: %+v", idx)
	}
}

func TestEncodeDecodeEmptyCatalog(t *testing.T) {
	c := New()
	buf, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsEmpty() {
		t.Fatal("expected empty catalog to round trip empty")
	}
}
