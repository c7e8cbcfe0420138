package journal

import (
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// loadOne decodes the single changeset keyed serialFrom from bucket.
func loadOne(c *ctx, codec Codec, bucket string, serialFrom uint32) (any, error) {
	var result any
	found := false
	err := walkChangesets(c, bucket, serialFrom, serialFrom, func(gotFrom uint32, _ chunkHeader, chunks [][]byte) error {
		decoded, err := codec.DeserializeChunks(chunks)
		if err != nil {
			return fmt.Errorf("decode changeset %d: %w", gotFrom, err)
		}
		result = decoded
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: serial %d", ErrNotFound, serialFrom)
	}
	return result, nil
}

// loadMerged decodes the single changeset stored in the merged bucket.
func loadMerged(c *ctx, codec Codec) (any, error) {
	if !c.shadow.mergedSerialValid() {
		return nil, fmt.Errorf("%w: no merged changeset", ErrNotFound)
	}
	return loadOne(c, codec, kv.BucketMerged, c.shadow.mergedSerial)
}

// loadRange implements Handle.Load: the merged changeset (if from names it)
// followed by every changeset in the main chain from there to last_serial,
// oldest first.
func loadRange(c *ctx, codec Codec, from uint32) ([]any, error) {
	var out []any
	cur := from

	if c.shadow.mergedSerialValid() && cur == c.shadow.mergedSerial {
		merged, err := loadMerged(c, codec)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
		cur = merged.(Changeset).SerialTo()
	}

	if !c.shadow.serialToValid() {
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: serial %d", ErrNotFound, from)
		}
		return out, nil
	}

	if cur == c.shadow.lastSerialTo && len(out) > 0 {
		// merged changeset already reaches the newest SOA; nothing more
		// to append from the main chain.
		return out, nil
	}

	err := walkChangesets(c, kv.BucketData, cur, c.shadow.lastSerial, func(serialFrom uint32, _ chunkHeader, chunks [][]byte) error {
		decoded, err := codec.DeserializeChunks(chunks)
		if err != nil {
			return fmt.Errorf("decode changeset %d: %w", serialFrom, err)
		}
		out = append(out, decoded)
		return nil
	})
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, fmt.Errorf("%w: serial %d", ErrNotFound, from)
	}
	return out, nil
}
