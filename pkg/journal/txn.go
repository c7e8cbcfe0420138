package journal

import (
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// ctx is the transaction shim: it owns a kv.Txn plus a shadow copy of the
// journal's metadata. Every helper in this package that mutates the journal
// takes a *ctx rather than a bare kv.Txn. Once any operation sets err, the
// ctx is "poisoned": later Find/Insert/Del/Commit calls become no-ops that
// return the first error, a txn_check_ret-style short circuit.
type ctx struct {
	kvtxn    kv.Txn
	writable bool

	shadow   metadata
	fresh    bool // true if this journal had no persisted metadata before this txn
	loadedAt metadata

	err error
}

// beginCtx starts a transaction and loads (or initializes) its shadow
// metadata snapshot.
func beginCtx(store kv.Store, zoneName string, writable bool) (*ctx, error) {
	kvtxn, err := store.Begin(writable)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	m, fresh, err := loadMetadata(kvtxn, zoneName)
	if err != nil {
		kvtxn.Rollback()
		return nil, err
	}
	return &ctx{kvtxn: kvtxn, writable: writable, shadow: m, fresh: fresh, loadedAt: m}, nil
}

// reuse returns c itself, for helpers that may run either standalone or
// inside a caller's open transaction. The result is the very same ctx, so
// commit or abort on it acts on the caller's transaction; it is not a
// wrapper whose commit/abort are no-ops.
func (c *ctx) reuse() *ctx {
	return c
}

func (c *ctx) poisoned() bool { return c.err != nil }

func (c *ctx) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return c.err
}

func (c *ctx) find(bucket string, key []byte) ([]byte, error) {
	if c.poisoned() {
		return nil, c.err
	}
	v, err := c.kvtxn.Find(bucket, key)
	if err != nil && err != kv.ErrNotFound {
		return nil, c.fail(fmt.Errorf("find: %w", err))
	}
	return v, err
}

func (c *ctx) insert(bucket string, key, value []byte) error {
	if c.poisoned() {
		return c.err
	}
	if err := c.kvtxn.Insert(bucket, key, value); err != nil {
		return c.fail(fmt.Errorf("insert: %w", err))
	}
	return nil
}

func (c *ctx) del(bucket string, key []byte) error {
	if c.poisoned() {
		return c.err
	}
	if err := c.kvtxn.Del(bucket, key); err != nil {
		return c.fail(fmt.Errorf("delete: %w", err))
	}
	return nil
}

func (c *ctx) delRange(bucket string, from, to []byte) error {
	if c.poisoned() {
		return c.err
	}
	if err := c.kvtxn.DelRange(bucket, from, to); err != nil {
		return c.fail(fmt.Errorf("delete range: %w", err))
	}
	return nil
}

func (c *ctx) clear(bucket string) error {
	if c.poisoned() {
		return c.err
	}
	if err := c.kvtxn.Clear(bucket); err != nil {
		return c.fail(fmt.Errorf("clear: %w", err))
	}
	return nil
}

func (c *ctx) count(bucket string) (int, error) {
	if c.poisoned() {
		return 0, c.err
	}
	n, err := c.kvtxn.Count(bucket)
	if err != nil {
		return 0, c.fail(fmt.Errorf("count: %w", err))
	}
	return n, nil
}

func (c *ctx) cursor(bucket string) (kv.Cursor, error) {
	if c.poisoned() {
		return nil, c.err
	}
	cur, err := c.kvtxn.Cursor(bucket)
	if err != nil {
		return nil, c.fail(fmt.Errorf("cursor: %w", err))
	}
	return cur, nil
}

// commit writes the whole shadow metadata alongside already-buffered data
// writes, then commits the underlying kv.Txn. A read-only ctx has nothing to
// persist and is rolled back instead. A poisoned ctx degrades commit to
// abort and returns the original error.
func (c *ctx) commit() error {
	if c.poisoned() {
		c.kvtxn.Rollback()
		return c.err
	}
	if !c.writable {
		c.kvtxn.Rollback()
		c.loadedAt = c.shadow
		return nil
	}
	if err := storeMetadata(c.kvtxn, c.shadow); err != nil {
		c.kvtxn.Rollback()
		return c.fail(err)
	}
	if err := c.kvtxn.Commit(); err != nil {
		return c.fail(fmt.Errorf("commit: %w", err))
	}
	c.loadedAt = c.shadow
	return nil
}

// abort discards the shadow metadata and the underlying transaction.
// Idempotent: calling it on an already-poisoned or already-committed ctx is
// harmless.
func (c *ctx) abort() {
	c.kvtxn.Rollback()
	c.shadow = c.loadedAt
}

// restart commits the current transaction (persisting whatever shadow
// changes have accumulated) and begins a fresh one against the same store,
// used by the insertion engine's continuity/duplicate restart rule (spec
// §4.6 stage 3) so later free-space accounting observes the deletions just
// made.
func (c *ctx) restart(store kv.Store, zoneName string) error {
	if err := c.commit(); err != nil {
		return err
	}
	fresh, err := beginCtx(store, zoneName, c.writable)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}
