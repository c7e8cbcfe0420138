package changeset

import (
	"fmt"

	"github.com/miekg/dns"
)

// Codec implements the journal package's Codec interface (journal.Codec) for
// *Changeset: it is the "serializer bridge" of the journal subsystem's
// public contract, concretely instantiated.
type Codec struct{}

// SerializedSize returns the total number of bytes SerializeChunks writes
// across its buffers.
func (Codec) SerializedSize(cs any) (int, error) {
	c, err := asChangeset(cs)
	if err != nil {
		return 0, err
	}
	return len(c.encode()), nil
}

// SerializeChunks splits the changeset's encoded form across bufs in order,
// filling each buffer up to its capacity before moving to the next, and
// reports how many bytes landed in each used buffer.
func (Codec) SerializeChunks(cs any, bufs [][]byte) ([]int, error) {
	c, err := asChangeset(cs)
	if err != nil {
		return nil, err
	}
	encoded := c.encode()

	sizes := make([]int, 0, len(bufs))
	off := 0
	for _, buf := range bufs {
		if off >= len(encoded) {
			break
		}
		n := copy(buf, encoded[off:])
		sizes = append(sizes, n)
		off += n
	}
	if off < len(encoded) {
		return nil, fmt.Errorf("changeset: %d bytes do not fit in %d chunk buffers", len(encoded), len(bufs))
	}
	return sizes, nil
}

// DeserializeChunks concatenates chunks in order and decodes the result.
func (Codec) DeserializeChunks(chunks [][]byte) (any, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	encoded := make([]byte, 0, total)
	for _, c := range chunks {
		encoded = append(encoded, c...)
	}
	return decode(encoded)
}

// Merge folds next into acc in place, per the outpost journal's resolved
// semantics for a removal with no matching prior addition: a removal first
// cancels a same-owner same-type-and-rdata addition already pending in acc;
// if none matches, it is appended to acc's removed set unconditionally.
func (Codec) Merge(acc, next any) (any, error) {
	a, err := asChangeset(acc)
	if err != nil {
		return nil, err
	}
	n, err := asChangeset(next)
	if err != nil {
		return nil, err
	}
	if a.To != n.From {
		return nil, fmt.Errorf("changeset: merge discontinuity: acc.To=%d next.From=%d", a.To, n.From)
	}

	for _, add := range n.Added {
		a.Added = append(a.Added, add)
	}
	for _, rem := range n.Removed {
		if idx := findMatchingRR(a.Added, rem); idx >= 0 {
			a.Added = append(a.Added[:idx], a.Added[idx+1:]...)
			continue
		}
		a.Removed = append(a.Removed, rem)
	}
	a.To = n.To
	return a, nil
}

func findMatchingRR(rrs []dns.RR, target dns.RR) int {
	for i, rr := range rrs {
		if dns.IsDuplicate(rr, target) {
			return i
		}
	}
	return -1
}

func asChangeset(v any) (*Changeset, error) {
	c, ok := v.(*Changeset)
	if !ok {
		return nil, fmt.Errorf("changeset: expected *changeset.Changeset, got %T", v)
	}
	return c, nil
}
