package kv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var buckets = [][]byte{
	[]byte(BucketData),
	[]byte(BucketMeta),
	[]byte(BucketMerged),
}

// BoltStore implements Store on top of a single go.etcd.io/bbolt file.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Open creates or opens a bbolt-backed Store at dataDir/journal.db, creating
// the data/meta/merged buckets if they don't already exist.
func Open(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("kv: create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "journal.db")

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Begin(writable bool) (Txn, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, fmt.Errorf("kv: begin transaction: %w", err)
	}
	return &boltTxn{tx: tx}, nil
}

func (s *BoltStore) Size() (int64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("kv: stat %s: %w", s.path, err)
	}
	return fi.Size(), nil
}

func (s *BoltStore) PageSize() int {
	// bbolt uses the OS page size unless bolt.Options.PageSize overrides it;
	// this store never overrides it, so the OS value is authoritative.
	return os.Getpagesize()
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Remove deletes the store's on-disk file. The store must already be closed.
func Remove(dataDir string) error {
	return os.Remove(filepath.Join(dataDir, "journal.db"))
}

// Exists reports whether a bbolt file already exists under dataDir.
func Exists(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, "journal.db"))
	return err == nil
}

type boltTxn struct {
	tx       *bolt.Tx
	writable bool
	written  int64
}

func (t *boltTxn) bucket(name string) (*bolt.Bucket, error) {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("kv: bucket %s missing", name)
	}
	return b, nil
}

func (t *boltTxn) Find(bucket string, key []byte) ([]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *boltTxn) Insert(bucket string, key, value []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Put(key, value); err != nil {
		return fmt.Errorf("kv: put into %s: %w", bucket, err)
	}
	t.written += int64(len(key) + len(value))
	return nil
}

func (t *boltTxn) Del(bucket string, key []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Delete(key); err != nil {
		return fmt.Errorf("kv: delete from %s: %w", bucket, err)
	}
	return nil
}

func (t *boltTxn) DelRange(bucket string, from, to []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(from); k != nil && bytes.Compare(k, to) <= 0; k, _ = c.Next() {
		kc := make([]byte, len(k))
		copy(kc, k)
		keys = append(keys, kc)
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("kv: delete range from %s: %w", bucket, err)
		}
	}
	return nil
}

func (t *boltTxn) Clear(bucket string) error {
	if err := t.tx.DeleteBucket([]byte(bucket)); err != nil {
		return fmt.Errorf("kv: clear %s: %w", bucket, err)
	}
	if _, err := t.tx.CreateBucket([]byte(bucket)); err != nil {
		return fmt.Errorf("kv: recreate %s: %w", bucket, err)
	}
	return nil
}

func (t *boltTxn) Count(bucket string) (int, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return 0, err
	}
	return b.Stats().KeyN, nil
}

func (t *boltTxn) Cursor(bucket string) (Cursor, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	return &boltCursor{c: b.Cursor()}, nil
}

func (t *boltTxn) Commit() error {
	if !t.tx.Writable() {
		return t.tx.Rollback()
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("kv: commit: %w", err)
	}
	return nil
}

func (t *boltTxn) Rollback() error {
	return t.tx.Rollback()
}

func (t *boltTxn) Size() int64 {
	return t.written
}

// boltCursor wraps a bolt.Cursor, which only exposes First/Last/Next/Prev/
// Seek (each returning and moving to a new position); it has no accessor for
// "current position without moving". boltCursor caches the last-returned
// pair so Key() can be a pure read.
type boltCursor struct {
	c          *bolt.Cursor
	k, v       []byte
	positioned bool
}

func (c *boltCursor) Seek(target []byte) ([]byte, []byte, bool) {
	k, v := c.c.Seek(target)
	return c.set(k, v)
}

func (c *boltCursor) Next() ([]byte, []byte, bool) {
	k, v := c.c.Next()
	return c.set(k, v)
}

func (c *boltCursor) Key() ([]byte, []byte, bool) {
	if !c.positioned {
		return nil, nil, false
	}
	return c.k, c.v, true
}

func (c *boltCursor) set(k, v []byte) ([]byte, []byte, bool) {
	if k == nil {
		c.positioned = false
		c.k, c.v = nil, nil
		return nil, nil, false
	}
	c.k, c.v = copyBytes(k), copyBytes(v)
	c.positioned = true
	return c.k, c.v, true
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
