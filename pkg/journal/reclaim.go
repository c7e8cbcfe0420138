package journal

import "github.com/outpostdns/outpost/pkg/kv"

// deleteUpto removes every changeset in [first, last] from the main data
// bucket, updating shadow metadata's first_serial, last_flushed, and
// serial_to/merged validity flags as each changeset is fully deleted (spec
// §4.7).
func deleteUpto(c *ctx, first, last uint32) error {
	return deleteChunks(c, kv.BucketData, first, last, func(serialFrom, serialTo uint32) error {
		if serialFrom != c.shadow.mergedSerial {
			c.shadow.firstSerial = serialTo
		}
		if c.shadow.lastFlushedValid() && serialFrom == c.shadow.lastFlushed {
			c.shadow.flags &^= flagLastFlushedValid
		}
		if serialFrom == c.shadow.lastSerial {
			c.shadow.flags &^= flagSerialToValid
		}
		if serialFrom == c.shadow.mergedSerial {
			c.shadow.flags &^= flagMergedSerialValid
		}
		return nil
	})
}

// deleteToFree reclaims changesets oldest-first until at least needed bytes
// have been freed (an approximation: each chunk is charged its stored size
// plus pageOverhead, accounting for the backing store's page granularity)
// or the oldest unflushed changeset is reached, whichever comes first. It
// never deletes unflushed data. Returns the approximate number of bytes
// freed.
func deleteToFree(c *ctx, needed int64, pageOverhead int) (int64, error) {
	if needed <= 0 || !c.shadow.serialToValid() {
		return 0, nil
	}

	if !c.shadow.lastFlushedValid() {
		// Nothing has been flushed (or merged) yet; every changeset is
		// still needed and none may be reclaimed.
		return 0, nil
	}

	var freed int64
	first := c.shadow.firstSerial
	last := c.shadow.lastSerial
	flushedBoundary := c.shadow.lastFlushed

	var toDeleteTo uint32
	haveTarget := false

	err := walkChunks(c, kv.BucketData, first, last, func(key chunkKey, h chunkHeader, payload []byte) error {
		if freed >= needed {
			return errStopWalk
		}
		freed += int64(h.chunkSize) + int64(pageOverhead)
		if key.index == h.chunkCount-1 {
			toDeleteTo = key.serialFrom
			haveTarget = true
			if key.serialFrom == flushedBoundary {
				// Everything past the flushed boundary is still unflushed
				// and must be kept.
				return errStopWalk
			}
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return 0, err
	}
	if !haveTarget {
		return 0, nil
	}

	if err := deleteUpto(c, first, toDeleteTo); err != nil {
		return 0, err
	}
	return freed, nil
}

// dropJournal empties both the merged and main data buckets and resets all
// metadata flags that describe their contents.
func dropJournal(c *ctx) error {
	if c.shadow.mergedSerialValid() {
		if err := c.clear(kv.BucketMerged); err != nil {
			return err
		}
		c.shadow.flags &^= flagMergedSerialValid
		c.shadow.mergedSerial = 0
	}
	if err := c.clear(kv.BucketData); err != nil {
		return err
	}
	c.shadow.firstSerial = 0
	c.shadow.lastSerial = 0
	c.shadow.lastSerialTo = 0
	c.shadow.flags &^= flagSerialToValid
	c.shadow.flags &^= flagLastFlushedValid
	c.shadow.lastFlushed = 0
	return nil
}

// deleteDirtySerial removes every chunk left behind by an interrupted
// multi-transaction insertion keyed dirtySerial, then clears the flag.
func deleteDirtySerial(c *ctx, dirtySerial uint32) error {
	cur, err := c.cursor(kv.BucketData)
	if err != nil {
		return err
	}
	var keys [][]byte
	k, _, ok := cur.Seek(firstChunkKey(dirtySerial))
	for ok {
		key, decOk := decodeChunkKey(k)
		if !decOk || key.serialFrom != dirtySerial {
			break
		}
		kc := make([]byte, len(k))
		copy(kc, k)
		keys = append(keys, kc)
		k, _, ok = cur.Next()
	}
	for _, key := range keys {
		if err := c.del(kv.BucketData, key); err != nil {
			return err
		}
	}
	c.shadow.flags &^= flagDirtySerialValid
	c.shadow.dirtySerial = 0
	return nil
}

// errStopWalk is a sentinel used internally to end a walkChunks callback
// early without surfacing an error to the caller.
var errStopWalk = errStopWalkErr{}

type errStopWalkErr struct{}

func (errStopWalkErr) Error() string { return "journal: internal walk stop" }
