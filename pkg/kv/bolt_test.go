package kv

import (
	"bytes"
	"os"
	"testing"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertFindRoundTrip(t *testing.T) {
	s := openTestStore(t)

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn.Insert(BucketData, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ro, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin(false): %v", err)
	}
	defer ro.Rollback()

	v, err := ro.Find(BucketData, []byte("k1"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !bytes.Equal(v, []byte("v1")) {
		t.Errorf("Find = %q, want %q", v, "v1")
	}
}

func TestFindMissingKey(t *testing.T) {
	s := openTestStore(t)
	txn, _ := s.Begin(false)
	defer txn.Rollback()

	if _, err := txn.Find(BucketData, []byte("absent")); err != ErrNotFound {
		t.Errorf("Find(absent) error = %v, want ErrNotFound", err)
	}
}

func TestDelRange(t *testing.T) {
	s := openTestStore(t)

	txn, _ := s.Begin(true)
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := txn.Insert(BucketData, []byte(k), []byte("v")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	txn, _ = s.Begin(true)
	if err := txn.DelRange(BucketData, []byte("b"), []byte("c")); err != nil {
		t.Fatalf("DelRange: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ro, _ := s.Begin(false)
	defer ro.Rollback()
	n, err := ro.Count(BucketData)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2 (a, d survive)", n)
	}
}

func TestCursorSeekAndNext(t *testing.T) {
	s := openTestStore(t)

	txn, _ := s.Begin(true)
	for _, k := range []string{"a", "b", "c"} {
		_ = txn.Insert(BucketData, []byte(k), []byte(k))
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ro, _ := s.Begin(false)
	defer ro.Rollback()
	cur, err := ro.Cursor(BucketData)
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}

	k, v, ok := cur.Seek([]byte("b"))
	if !ok || string(k) != "b" || string(v) != "b" {
		t.Fatalf("Seek(b) = %q %q %v", k, v, ok)
	}

	// Key() re-reads the cached position without advancing.
	k2, v2, ok2 := cur.Key()
	if !ok2 || string(k2) != "b" || string(v2) != "b" {
		t.Errorf("Key() after Seek = %q %q %v, want unchanged position", k2, v2, ok2)
	}

	k3, _, ok3 := cur.Next()
	if !ok3 || string(k3) != "c" {
		t.Errorf("Next() = %q %v, want c", k3, ok3)
	}

	_, _, ok4 := cur.Next()
	if ok4 {
		t.Error("Next() past end should report ok=false")
	}
}

func TestClearResetsBucket(t *testing.T) {
	s := openTestStore(t)

	txn, _ := s.Begin(true)
	_ = txn.Insert(BucketMerged, []byte("x"), []byte("y"))
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	txn, _ = s.Begin(true)
	if err := txn.Clear(BucketMerged); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ro, _ := s.Begin(false)
	defer ro.Rollback()
	n, err := ro.Count(BucketMerged)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after Clear = %d, want 0", n)
	}
}

func TestExistsAndRemove(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Fatal("Exists should be false before Open")
	}
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !Exists(dir) {
		t.Error("Exists should be true after Open")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if Exists(dir) {
		t.Error("Exists should be false after Remove")
	}
}

func TestPageSizeMatchesOS(t *testing.T) {
	s := openTestStore(t)
	if got, want := s.PageSize(), os.Getpagesize(); got != want {
		t.Errorf("PageSize() = %d, want OS page size %d", got, want)
	}
}
