package diskfile

import (
	"path/filepath"
	"testing"

	"github.com/kjm99d/SpeedSQL/storage/page"
)

func TestWriteReadPageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "test.db"), FlagCreate)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := f.Allocate()
	var buf [page.Size]byte
	buf[0] = 0xAB
	buf[page.Size-1] = 0xCD
	if err := f.WritePage(n, buf[:]); err != nil {
		t.Fatal(err)
	}

	var got [page.Size]byte
	if err := f.ReadPage(n, got[:]); err != nil {
		t.Fatal(err)
	}
	if got[0] != 0xAB || got[page.Size-1] != 0xCD {
		t.Fatalf("round trip mismatch")
	}
}

func TestAllocateIsMonotonic(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "test.db"), FlagCreate)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a := f.Allocate()
	b := f.Allocate()
	if b != a+1 {
		t.Fatalf("expected monotonic allocation, got %d then %d", a, b)
	}
}
