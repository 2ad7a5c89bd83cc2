package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kjm99d/SpeedSQL/storage/bufferpool"
	"github.com/kjm99d/SpeedSQL/storage/diskfile"
)

func newTestTree(t *testing.T, capacity int) *Tree {
	t.Helper()
	dir := t.TempDir()
	f, err := diskfile.Open(filepath.Join(dir, "test.db"), diskfile.FlagCreate)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	pool := bufferpool.New(f, capacity)
	tr, err := Create(pool, bytes.Compare)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func keyFor(i int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	return b[:]
}

func TestInsertFindRoundTrip(t *testing.T) {
	tr := newTestTree(t, 64)
	for i := 0; i < 200; i++ {
		if err := tr.Insert(keyFor(i), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	for i := 0; i < 200; i++ {
		v, err := tr.Find(keyFor(i))
		if err != nil {
			t.Fatalf("find %d: %v", i, err)
		}
		if string(v) != fmt.Sprintf("value-%d", i) {
			t.Fatalf("find %d: got %q", i, v)
		}
	}
}

func TestDuplicateInsertFailsConstraint(t *testing.T) {
	tr := newTestTree(t, 32)
	if err := tr.Insert(keyFor(1), []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(keyFor(1), []byte("b")); err == nil {
		t.Fatal("expected constraint error on duplicate key")
	}
}

func TestFindMissingIsNotFound(t *testing.T) {
	tr := newTestTree(t, 32)
	if _, err := tr.Find(keyFor(42)); err == nil {
		t.Fatal("expected not-found error on empty tree")
	}
}

func TestCursorScanIsOrdered(t *testing.T) {
	tr := newTestTree(t, 64)
	order := []int{5, 1, 9, 3, 7, 2, 8, 0, 6, 4}
	for _, i := range order {
		if err := tr.Insert(keyFor(i), []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	cur := tr.NewCursor()
	if err := cur.First(); err != nil {
		t.Fatal(err)
	}
	var got []int
	for cur.Valid() {
		var v uint64
		v = binary.BigEndian.Uint64(cur.Key())
		got = append(got, int(v))
		if err := cur.Next(); err != nil {
			t.Fatal(err)
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("scan out of order: %v", got)
		}
	}
	if len(got) != len(order) {
		t.Fatalf("expected %d rows, got %d", len(order), len(got))
	}
}

func TestDeleteThenFindNotFound(t *testing.T) {
	tr := newTestTree(t, 32)
	tr.Insert(keyFor(1), []byte("a"))
	tr.Insert(keyFor(2), []byte("b"))
	if err := tr.Delete(keyFor(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Find(keyFor(1)); err == nil {
		t.Fatal("expected not found after delete")
	}
	if v, err := tr.Find(keyFor(2)); err != nil || string(v) != "b" {
		t.Fatalf("unrelated key disturbed by delete: %v %q", err, v)
	}
}

func TestSeekExactAndApproximate(t *testing.T) {
	tr := newTestTree(t, 64)
	for _, i := range []int{10, 20, 30, 40} {
		tr.Insert(keyFor(i), []byte(fmt.Sprintf("v%d", i)))
	}
	cur := tr.NewCursor()
	exact, err := cur.Seek(keyFor(20))
	if err != nil {
		t.Fatal(err)
	}
	if !exact {
		t.Fatal("expected exact hit on existing key")
	}

	cur2 := tr.NewCursor()
	exact, err = cur2.Seek(keyFor(25))
	if err != nil {
		t.Fatal(err)
	}
	if exact {
		t.Fatal("expected inexact hit on absent key")
	}
	if binary.BigEndian.Uint64(cur2.Key()) != 30 {
		t.Fatalf("expected seek to land on next key 30, got %d", binary.BigEndian.Uint64(cur2.Key()))
	}
}
