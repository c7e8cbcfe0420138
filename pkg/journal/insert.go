package journal

import (
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// insertOne runs the full insertion state machine (spec §4.6) for a single
// changeset. merged selects the internal path used by the merge engine
// (skips continuity/duplicate checks and targets the merged bucket instead
// of data).
func (h *Handle) insertOne(c *ctx, cs Changeset, merged bool) error {
	bucket := kv.BucketData
	if merged {
		bucket = kv.BucketMerged
	}

	if !merged {
		restarted, err := h.checkContinuityAndDuplicates(c, cs)
		if err != nil {
			return err
		}
		if restarted {
			if err := c.restart(h.store, h.zoneName); err != nil {
				return err
			}
		}
	}

	if err := h.makeSpace(c, merged); err != nil {
		return err
	}

	if err := h.writeChangeset(c, bucket, cs); err != nil {
		return err
	}

	if merged {
		c.shadow.mergedSerial = cs.SerialFrom()
		c.shadow.flags |= flagMergedSerialValid
	} else {
		if !c.shadow.serialToValid() {
			c.shadow.firstSerial = cs.SerialFrom()
		}
		c.shadow.lastSerial = cs.SerialFrom()
		c.shadow.lastSerialTo = cs.SerialTo()
		c.shadow.flags |= flagSerialToValid
	}
	return nil
}

// checkContinuityAndDuplicates implements stages 1-2 of §4.6: it detects a
// broken chain or a re-inserted serial, reacts by flushing-or-merging and
// then dropping the whole main chain (continuity break) or truncating it up
// to and including the duplicate (duplicate serial), and reports whether the
// caller must restart its transaction before making space.
func (h *Handle) checkContinuityAndDuplicates(c *ctx, cs Changeset) (restart bool, err error) {
	if c.shadow.serialToValid() && c.shadow.lastSerialTo != cs.SerialFrom() {
		h.log.Warn().
			Uint32("expected_from", c.shadow.lastSerialTo).
			Uint32("got_from", cs.SerialFrom()).
			Msg("journal continuity broken, dropping main chain")
		if err := h.flushOrMerge(c); err != nil {
			return false, err
		}
		if err := dropMainChain(c); err != nil {
			return false, err
		}
		return true, nil
	}

	_, err = c.find(kv.BucketData, firstChunkKey(cs.SerialTo()))
	if err == nil {
		h.log.Warn().
			Uint32("serial", cs.SerialTo()).
			Msg("duplicate changeset serial, dropping chain up to it")
		if err := h.flushOrMerge(c); err != nil {
			return false, err
		}
		wasLast := cs.SerialTo() == c.shadow.lastSerial
		var survivingFrom uint32
		if err := deleteChunks(c, kv.BucketData, c.shadow.firstSerial, cs.SerialTo(), func(serialFrom, serialTo uint32) error {
			if serialFrom == cs.SerialTo() {
				survivingFrom = serialTo
			}
			return nil
		}); err != nil {
			return false, err
		}
		if wasLast {
			c.shadow.firstSerial = 0
			c.shadow.lastSerial = 0
			c.shadow.lastSerialTo = 0
			c.shadow.flags &^= flagSerialToValid
		} else {
			c.shadow.firstSerial = survivingFrom
		}
		return true, nil
	}
	if err != kv.ErrNotFound {
		return false, err
	}
	return false, nil
}

// dropMainChain clears the entire main-DB chain and the flags that describe
// it, used when continuity breaks and the old chain can no longer be
// trusted.
func dropMainChain(c *ctx) error {
	if err := c.clear(kv.BucketData); err != nil {
		return err
	}
	c.shadow.firstSerial = 0
	c.shadow.lastSerial = 0
	c.shadow.lastSerialTo = 0
	c.shadow.flags &^= flagSerialToValid
	c.shadow.flags &^= flagLastFlushedValid
	return nil
}

// makeSpace implements stage 4 of §4.6: if the store's occupied fraction of
// fslimit exceeds the threshold appropriate to the journal's current merge
// state, reclaim flushed changesets and, if that is not enough, merge or
// demand a flush.
func (h *Handle) makeSpace(c *ctx, mergedPath bool) error {
	allowed := keepFree
	switch {
	case c.shadow.mergedSerialValid():
		allowed = keepMerged
	case h.policy.MergeAllowed(h.zoneName):
		allowed = keepForMerge
	}

	used, err := h.store.Size()
	if err != nil {
		return fmt.Errorf("make space: %w", err)
	}
	occupied := float64(used) / float64(h.fslimit)
	if occupied <= 1-allowed {
		return nil
	}

	needed := int64((occupied - (1 - allowed)) * float64(h.fslimit) * disposeRatio)
	if needed < 0 {
		needed = 0
	}

	pageSize := h.store.PageSize()
	if pageSize <= 0 {
		pageSize = estimatedPageOverhead
	}
	freed, err := deleteToFree(c, needed, pageSize)
	if err != nil {
		return err
	}
	if freed >= needed {
		return nil
	}

	if mergedPath {
		// the merge engine's own insert takes priority over space limits:
		// proceed even if reclamation fell short.
		return nil
	}

	if err := h.flushOrMerge(c); err != nil {
		return err
	}
	freed, err = deleteToFree(c, needed, pageSize)
	if err != nil {
		return err
	}
	if freed >= needed {
		return nil
	}
	return ErrNoSpace
}

// writeChangeset serializes cs into chunks via the Handle's Codec and
// writes them to bucket, forcing an intermediate commit (via the dirty
// serial marker) if a single transaction would otherwise grow past
// maxInsertTxnFraction of fslimit.
func (h *Handle) writeChangeset(c *ctx, bucket string, cs Changeset) error {
	size, err := h.codec.SerializedSize(cs)
	if err != nil {
		return fmt.Errorf("serialize size: %w", err)
	}

	maxChunks := (2*size + chunkPayloadMax - 1) / chunkPayloadMax
	if maxChunks < 1 {
		maxChunks = 1
	}
	bufs := make([][]byte, maxChunks)
	for i := range bufs {
		bufs[i] = make([]byte, chunkPayloadMax)
	}

	sizes, err := h.codec.SerializeChunks(cs, bufs)
	if err != nil {
		return fmt.Errorf("serialize chunks: %w", err)
	}
	chunkCount := uint32(len(sizes))

	threshold := int64(float64(h.fslimit) * maxInsertTxnFraction)

	for i, n := range sizes {
		hdr := chunkHeader{
			serialTo:   cs.SerialTo(),
			chunkCount: chunkCount,
			chunkSize:  uint32(n),
		}
		key := chunkKey{serialFrom: cs.SerialFrom(), index: uint32(i)}
		value := makeChunk(hdr, bufs[i][:n])
		if err := c.insert(bucket, key.encode(), value); err != nil {
			return err
		}

		if bucket == kv.BucketData && c.kvtxn.Size() > threshold && i < len(sizes)-1 {
			c.shadow.dirtySerial = cs.SerialFrom()
			c.shadow.flags |= flagDirtySerialValid
			if err := c.restart(h.store, h.zoneName); err != nil {
				return err
			}
			c.shadow.flags &^= flagDirtySerialValid
		}
	}
	return nil
}
