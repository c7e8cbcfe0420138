package journal

import (
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// flushOrMerge implements §4.8's flush/merge cooperation protocol: if
// everything is already flushed it tidies up a now-unneeded merged
// changeset; otherwise it either merges (when the zone's Policy allows
// skipping an external flush) or returns ErrBusy so the caller can trigger
// one and retry.
func (h *Handle) flushOrMerge(c *ctx) error {
	fullyFlushed := !c.shadow.serialToValid() ||
		(c.shadow.lastFlushedValid() && c.shadow.lastFlushed == c.shadow.lastSerial)

	if fullyFlushed {
		if c.shadow.mergedSerialValid() && !h.policy.MergeAllowed(h.zoneName) {
			if err := c.clear(kv.BucketMerged); err != nil {
				return err
			}
			c.shadow.flags &^= flagMergedSerialValid
			c.shadow.mergedSerial = 0
		}
		return nil
	}

	if h.policy.MergeAllowed(h.zoneName) {
		return h.mergeJournal(c)
	}
	return ErrBusy
}

// findFirstUnflushed returns the serial_from of the oldest changeset not yet
// covered by a flush or merge.
func findFirstUnflushed(c *ctx) (uint32, bool, error) {
	if !c.shadow.lastFlushedValid() {
		return c.shadow.firstSerial, c.shadow.serialToValid(), nil
	}
	if c.shadow.lastFlushed == c.shadow.lastSerialTo {
		return 0, false, nil // nothing unflushed
	}

	var next uint32
	found := false
	err := walkChunks(c, kv.BucketData, c.shadow.lastFlushed, c.shadow.lastFlushed, func(key chunkKey, h chunkHeader, _ []byte) error {
		if key.index == h.chunkCount-1 {
			next = h.serialTo
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, fmt.Errorf("%w: last_flushed serial %d", ErrMalformed, c.shadow.lastFlushed)
	}
	return next, true, nil
}

// mergeJournal collapses every unflushed changeset into a single merged
// changeset (spec §4.8), marking the whole chain as flushed afterward so it
// becomes eligible for reclamation.
func (h *Handle) mergeJournal(c *ctx) error {
	firstUnflushed, hasWork, err := findFirstUnflushed(c)
	if err != nil {
		return err
	}
	if !hasWork {
		c.shadow.lastFlushed = c.shadow.lastSerial
		c.shadow.flags |= flagLastFlushedValid
		return nil
	}

	var acc any
	from := firstUnflushed

	if c.shadow.mergedSerialValid() {
		acc, err = loadMerged(c, h.codec)
		if err != nil {
			return err
		}
		if err := c.clear(kv.BucketMerged); err != nil {
			return err
		}
		c.shadow.flags &^= flagMergedSerialValid
	} else {
		acc, err = loadOne(c, h.codec, kv.BucketData, from)
		if err != nil {
			return err
		}
		csAcc := acc.(Changeset)
		from = csAcc.SerialTo()
	}

	if from != c.shadow.lastSerialTo {
		err := walkChangesets(c, kv.BucketData, from, c.shadow.lastSerial, func(serialFrom uint32, _ chunkHeader, chunks [][]byte) error {
			next, err := h.codec.DeserializeChunks(chunks)
			if err != nil {
				return fmt.Errorf("decode changeset %d: %w", serialFrom, err)
			}
			merged, err := h.codec.Merge(acc, next)
			if err != nil {
				return fmt.Errorf("merge changeset %d: %w", serialFrom, err)
			}
			acc = merged
			return nil
		})
		if err != nil {
			return err
		}
	}

	mergedCs, ok := acc.(Changeset)
	if !ok {
		return fmt.Errorf("%w: merge produced non-Changeset result", ErrMalformed)
	}
	if err := h.insertOne(c, mergedCs, true); err != nil {
		return err
	}

	c.shadow.lastFlushed = c.shadow.lastSerial
	c.shadow.flags |= flagLastFlushedValid
	return nil
}
