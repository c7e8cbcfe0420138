package journal

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/outpostdns/outpost/pkg/kv"
	outpostlog "github.com/outpostdns/outpost/pkg/log"
)

// Handle is a single zone's open journal. It owns its kv.Store exclusively.
// Every exported method holds the Handle's mutex for its whole duration, so
// concurrent calls on one Handle run one at a time (see spec §5: one writer
// transaction at a time).
type Handle struct {
	mu sync.Mutex

	zoneName string
	dataDir  string
	fslimit  int64
	codec    Codec
	policy   Policy
	log      zerolog.Logger

	store  kv.Store
	m      metadata
	opened bool
}

// Open creates or opens a journal for zoneName under dataDir, backed by a
// kv.Store at dataDir. fslimit is raised to fslimitMin if smaller. codec is
// the changeset serializer bridge; policy decides whether merging is
// allowed when space runs short. A nil policy defaults to AlwaysFlush.
func Open(dataDir, zoneName string, fslimit int64, codec Codec, policy Policy) (*Handle, error) {
	if dataDir == "" || zoneName == "" || codec == nil {
		return nil, fmt.Errorf("%w: dataDir, zoneName, and codec are required", ErrInval)
	}
	if fslimit < fslimitMin {
		fslimit = fslimitMin
	}
	if policy == nil {
		policy = AlwaysFlush
	}

	h := &Handle{
		zoneName: zoneName,
		dataDir:  dataDir,
		fslimit:  fslimit,
		codec:    codec,
		policy:   policy,
		log:      outpostlog.WithZone(zoneName),
	}

	if err := h.open(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handle) open() error {
	if kv.Exists(h.dataDir) {
		if resized, err := h.checkResize(); err != nil {
			return err
		} else if resized {
			// store was reinitialized fresh by checkResize; fall through
			// to a normal open against the new, empty file.
		}
	}

	store, err := kv.Open(h.dataDir)
	if err != nil {
		return err
	}
	h.store = store

	c, err := beginCtx(h.store, h.zoneName, true)
	if err != nil {
		h.store.Close()
		return err
	}
	if !c.fresh && c.shadow.zoneName != "" && c.shadow.zoneName != h.zoneName {
		h.log.Warn().
			Str("stored_zone", c.shadow.zoneName).
			Str("requested_zone", h.zoneName).
			Msg("journal zone name mismatch")
		h.zoneName = c.shadow.zoneName
	}
	h.m = c.shadow
	if err := c.commit(); err != nil {
		h.store.Close()
		return err
	}

	h.opened = true
	if err := h.cleanupDirty(); err != nil {
		h.store.Close()
		h.opened = false
		return err
	}
	return nil
}

// checkResize detects a store whose on-disk size already exceeds the
// requested fslimit (the zone was previously opened with a larger limit).
// If everything has been flushed, it removes the on-disk file so the next
// Open starts fresh within the new limit; otherwise it returns
// ErrRetryAfterFlush so the caller can flush externally and reopen.
func (h *Handle) checkResize() (bool, error) {
	probe, err := kv.Open(h.dataDir)
	if err != nil {
		return false, err
	}
	size, err := probe.Size()
	if err != nil {
		probe.Close()
		return false, err
	}
	c, err := beginCtx(probe, h.zoneName, false)
	if err != nil {
		probe.Close()
		return false, err
	}
	m := c.shadow
	c.abort()
	probe.Close()

	if size <= h.fslimit {
		return false, nil
	}

	fullyFlushed := !m.serialToValid() || (m.lastFlushedValid() && m.lastFlushed == m.lastSerial)
	if !fullyFlushed {
		return false, ErrRetryAfterFlush
	}

	h.log.Info().
		Int64("previous_size", size).
		Int64("new_fslimit", h.fslimit).
		Msg("journal shrunk below previous size, reinitializing")
	if err := kv.Remove(h.dataDir); err != nil {
		return false, fmt.Errorf("remove oversized journal: %w", err)
	}
	return true, nil
}

// cleanupDirty deletes any chunks left behind by an insertion that was
// interrupted mid-transaction (spec §4.9).
func (h *Handle) cleanupDirty() error {
	if !h.m.dirtySerialValid() {
		return nil
	}
	return h.withTxn(true, func(c *ctx) error {
		return deleteDirtySerial(c, c.shadow.dirtySerial)
	})
}

// Close releases the underlying store. Safe to call once; calling it again
// is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return nil
	}
	h.opened = false
	return h.store.Close()
}

// withTxn begins a write or read-only transaction, runs fn, and commits on
// success or aborts on error, refreshing the Handle's cached metadata from
// the ctx on a successful commit.
func (h *Handle) withTxn(writable bool, fn func(c *ctx) error) error {
	c, err := beginCtx(h.store, h.zoneName, writable)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		c.abort()
		return err
	}
	if err := c.commit(); err != nil {
		return err
	}
	h.m = c.shadow
	return nil
}

// Store inserts a single changeset, enforcing continuity and duplicate
// resolution, making space via reclamation or merge if necessary, and
// updating metadata atomically with the write.
func (h *Handle) Store(cs Changeset) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return fmt.Errorf("%w: journal not open", ErrInval)
	}
	return h.withTxn(true, func(c *ctx) error {
		return h.insertOne(c, cs, false)
	})
}

// StoreMany inserts a list of changesets in a single outer transaction,
// failing fast on the first error. On failure only the writes since the
// transaction last committed are rolled back: an insertion that restarts the
// transaction (after a continuity or duplicate fix-up, or a forced
// mid-changeset commit) has already committed the changesets before it.
func (h *Handle) StoreMany(css []Changeset) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return fmt.Errorf("%w: journal not open", ErrInval)
	}
	return h.withTxn(true, func(c *ctx) error {
		for _, cs := range css {
			if err := h.insertOne(c, cs, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load appends every changeset from from onward, oldest first, decoded via
// the Handle's Codec. Returns ErrNotFound if from names no changeset and the
// merged changeset (if any) does not start there either.
func (h *Handle) Load(from uint32) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return nil, fmt.Errorf("%w: journal not open", ErrInval)
	}

	var out []any
	err := h.withTxn(false, func(c *ctx) error {
		result, err := loadRange(c, h.codec, from)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FlushMark records that the external flusher has persisted the zone
// through the current last_serial, allowing those changesets to be
// reclaimed later.
func (h *Handle) FlushMark() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return fmt.Errorf("%w: journal not open", ErrInval)
	}
	return h.withTxn(true, func(c *ctx) error {
		if !c.shadow.serialToValid() {
			return nil
		}
		c.shadow.lastFlushed = c.shadow.lastSerial
		c.shadow.flags |= flagLastFlushedValid
		return nil
	})
}

// Count returns the number of changesets currently stored in the main data
// bucket (the merged changeset, if any, is not counted).
func (h *Handle) Count() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return 0, fmt.Errorf("%w: journal not open", ErrInval)
	}
	var n int
	err := h.withTxn(false, func(c *ctx) error {
		if !c.shadow.serialToValid() {
			return nil
		}
		count := 0
		err := walkChunks(c, kv.BucketData, c.shadow.firstSerial, c.shadow.lastSerial, func(key chunkKey, hdr chunkHeader, _ []byte) error {
			if key.index == 0 {
				count++
			}
			return nil
		})
		n = count
		return err
	})
	return n, err
}

// SerialRange reports whether the journal is empty, and if not, the serial
// range [first, last] it currently holds (last being the newest SOA-from,
// not its SOA-to).
func (h *Handle) SerialRange() (empty bool, first, last uint32, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return false, 0, 0, fmt.Errorf("%w: journal not open", ErrInval)
	}
	if !h.m.serialToValid() {
		return true, 0, 0, nil
	}
	return false, h.m.firstSerial, h.m.lastSerial, nil
}

// LoadZoneName returns the zone name stored on disk. If it differs from the
// name the Handle was opened with, it returns ErrSemCheck alongside the
// stored name; the Handle's in-memory name is already updated to match (see
// open()).
func (h *Handle) LoadZoneName(requested string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.zoneName != requested {
		return h.zoneName, ErrSemCheck
	}
	return h.zoneName, nil
}

// Exists reports whether a journal already exists on disk at dataDir.
func Exists(dataDir string) bool {
	return kv.Exists(dataDir)
}

// Drop deletes every changeset (merged and main) from the journal, leaving
// it open but empty.
func (h *Handle) Drop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return fmt.Errorf("%w: journal not open", ErrInval)
	}
	return h.withTxn(true, func(c *ctx) error {
		return dropJournal(c)
	})
}
