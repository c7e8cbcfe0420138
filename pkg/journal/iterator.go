package journal

import (
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// chunkVisitor is called once per chunk during a Chunks-mode walk.
type chunkVisitor func(key chunkKey, h chunkHeader, payload []byte) error

// changesetVisitor is called once per fully-reassembled changeset during a
// Changesets-mode walk.
type changesetVisitor func(serialFrom uint32, h chunkHeader, chunks [][]byte) error

// walkChunks visits every chunk of the chain that starts with the changeset
// keyed firstFrom and ends with the changeset keyed lastFrom (both
// inclusive), invoking visit for each. Within a changeset chunks come in
// index order; from one changeset to the next the walk follows the
// serial_to stored in the chunk header, not numeric key order.
//
// It implements dual fast/slow-path iteration: after visiting a chunk it
// first tries the cursor's plain Next (the common case,
// since chunks are stored contiguously); if that lands on an unexpected key
// (end of bucket, or a key that isn't the expected next chunk) it falls back
// to an explicit Seek on the expected key. The Seek fallback is what follows
// a chain whose next serial_from is not the next key in byte order (for
// example after serial wraparound).
func walkChunks(c *ctx, bucket string, firstFrom, lastFrom uint32, visit chunkVisitor) error {
	cur, err := c.cursor(bucket)
	if err != nil {
		return err
	}

	startKey := chunkKey{serialFrom: firstFrom, index: 0}.encode()
	k, v, ok := cur.Seek(startKey)
	if !ok {
		return fmt.Errorf("%w: no chunk at serial %d", ErrNotFound, firstFrom)
	}
	if gotKey, okKey := decodeChunkKey(k); !okKey || gotKey != (chunkKey{serialFrom: firstFrom, index: 0}) {
		return fmt.Errorf("%w: no chunk at serial %d", ErrNotFound, firstFrom)
	}

	for {
		key, okKey := decodeChunkKey(k)
		if !okKey {
			return fmt.Errorf("%w: corrupt chunk key", ErrMalformed)
		}
		h, payload, okChunk := splitChunk(v)
		if !okChunk {
			return fmt.Errorf("%w: corrupt chunk header at serial %d index %d", ErrMalformed, key.serialFrom, key.index)
		}

		if err := visit(key, h, payload); err != nil {
			return err
		}

		atLastChunk := key.index == h.chunkCount-1
		if atLastChunk && key.serialFrom == lastFrom {
			return nil
		}

		var expect chunkKey
		if atLastChunk {
			expect = chunkKey{serialFrom: h.serialTo, index: 0}
		} else {
			expect = chunkKey{serialFrom: key.serialFrom, index: key.index + 1}
		}

		nk, nv, nok := cur.Next()
		if nok {
			if gotKey, _ := decodeChunkKey(nk); gotKey == expect {
				k, v = nk, nv
				continue
			}
		}

		sk, sv, sok := cur.Seek(expect.encode())
		if !sok {
			return fmt.Errorf("%w: expected chunk (serial=%d index=%d) missing", ErrNotFound, expect.serialFrom, expect.index)
		}
		gotKey, _ := decodeChunkKey(sk)
		if gotKey != expect {
			return fmt.Errorf("%w: expected chunk (serial=%d index=%d), found (serial=%d index=%d)",
				ErrMalformed, expect.serialFrom, expect.index, gotKey.serialFrom, gotKey.index)
		}
		k, v = sk, sv
	}
}

// walkChangesets is walkChunks with the reassembly step: chunks belonging to
// the same changeset are collected and handed to visit once, in order,
// when the last chunk of that changeset is seen.
func walkChangesets(c *ctx, bucket string, firstFrom, lastFrom uint32, visit changesetVisitor) error {
	var (
		collecting   bool
		collectFrom  uint32
		collectHdr   chunkHeader
		collectPiece [][]byte
	)

	err := walkChunks(c, bucket, firstFrom, lastFrom, func(key chunkKey, h chunkHeader, payload []byte) error {
		if !collecting {
			collecting = true
			collectFrom = key.serialFrom
			collectHdr = h
			collectPiece = make([][]byte, h.chunkCount)
		}
		if key.serialFrom != collectFrom {
			return fmt.Errorf("%w: chunk serial %d does not match changeset in progress %d", ErrMalformed, key.serialFrom, collectFrom)
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		collectPiece[key.index] = cp

		if key.index == h.chunkCount-1 {
			if err := visit(collectFrom, collectHdr, collectPiece); err != nil {
				return err
			}
			collecting = false
			collectPiece = nil
		}
		return nil
	})
	return err
}

// deleteChunks removes every chunk visited by walkChunks over
// [firstFrom, lastFrom], invoking onChangesetDone each time the last chunk
// of a changeset is deleted (for callers that need to react per-changeset,
// e.g. reclamation's bookkeeping).
func deleteChunks(c *ctx, bucket string, firstFrom, lastFrom uint32, onChangesetDone func(serialFrom, serialTo uint32) error) error {
	var toDelete []chunkKey
	err := walkChunks(c, bucket, firstFrom, lastFrom, func(key chunkKey, h chunkHeader, _ []byte) error {
		toDelete = append(toDelete, key)
		if key.index == h.chunkCount-1 && onChangesetDone != nil {
			if err := onChangesetDone(key.serialFrom, h.serialTo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range toDelete {
		if err := c.del(bucket, k.encode()); err != nil {
			return err
		}
	}
	return nil
}

// firstChunkKey returns the encoded key of chunk 0 for serialFrom, used by
// callers doing a direct lookup rather than a range walk.
func firstChunkKey(serialFrom uint32) []byte {
	return chunkKey{serialFrom: serialFrom, index: 0}.encode()
}

// bucketIsEmpty reports whether bucket currently holds no keys.
func bucketIsEmpty(c *ctx, bucket string) (bool, error) {
	n, err := c.count(bucket)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
