// Package kv defines the ordered, crash-safe, multi-bucket key-value store
// the journal is built on, and a go.etcd.io/bbolt-backed implementation of it.
//
// A Store owns one on-disk file holding three named buckets ("sub-databases"
// in the terms the journal package uses): data, meta, and merged. Buckets are
// created on first open and never removed by the store itself.
package kv

import "errors"

// ErrNotFound is returned by Find when a key is absent from a bucket.
var ErrNotFound = errors.New("kv: key not found")

// ErrTxnTooLarge names the condition of a read-write transaction that has
// grown past a size the store is no longer willing to buffer before commit.
// BoltStore never returns it.
var ErrTxnTooLarge = errors.New("kv: transaction too large")

// Bucket names understood by the journal package.
const (
	BucketData   = "data"
	BucketMeta   = "meta"
	BucketMerged = "merged"
)

// Store is the ordered key-value store the journal consumes. Implementations
// must give keys lexical byte ordering (big-endian encodings rely on this)
// and must make every write inside a transaction atomic with the others in
// that same transaction.
type Store interface {
	// Begin starts a transaction against the named buckets. writable selects
	// a read-write transaction; only one may be open at a time per Store.
	Begin(writable bool) (Txn, error)

	// Size reports the current on-disk size of the store, used to detect a
	// shrunk fslimit across a reopen.
	Size() (int64, error)

	// PageSize reports the store's page granularity, used for reclamation's
	// approximate-freed-bytes accounting.
	PageSize() int

	// Close releases the underlying file handle.
	Close() error
}

// Txn is a single transaction spanning one or more buckets.
type Txn interface {
	// Find looks up key in bucket, returning a copy of its value.
	Find(bucket string, key []byte) ([]byte, error)

	// Insert stores value under key in bucket, overwriting any existing
	// value. An implementation may return ErrTxnTooLarge once the
	// transaction has grown too large to hold before commit; BoltStore's
	// Insert does not.
	Insert(bucket string, key, value []byte) error

	// Del removes key from bucket. Deleting an absent key is not an error.
	Del(bucket string, key []byte) error

	// DelRange removes every key in [from, to] (inclusive) from bucket.
	DelRange(bucket string, from, to []byte) error

	// Clear removes every key from bucket.
	Clear(bucket string) error

	// Count returns the number of keys in bucket.
	Count(bucket string) (int, error)

	// Cursor returns a forward iterator over bucket.
	Cursor(bucket string) (Cursor, error)

	// Commit applies all writes made through this Txn. A read-only Txn's
	// Commit is equivalent to Rollback.
	Commit() error

	// Rollback discards all writes made through this Txn.
	Rollback() error

	// Size reports how many bytes have been written through this Txn since
	// it began, used by the insertion engine's forced-mid-commit rule.
	Size() int64
}

// Cursor is a forward-only iterator over a bucket's keys in byte order.
type Cursor interface {
	// Seek positions the cursor at the first key >= target and returns it,
	// or (nil, nil, false) if none exists.
	Seek(target []byte) (key, value []byte, ok bool)

	// Next advances the cursor and returns the new position, or
	// (nil, nil, false) if iteration is exhausted.
	Next() (key, value []byte, ok bool)

	// Key returns the cursor's current position without advancing it.
	Key() (key, value []byte, ok bool)
}
