package changeset

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecSerializeChunksRoundTrip(t *testing.T) {
	cs := &Changeset{
		From:  1,
		To:    2,
		Added: []dns.RR{rr(t, "a.example.com. 300 IN A 192.0.2.5")},
	}
	var codec Codec

	size, err := codec.SerializedSize(cs)
	require.NoError(t, err)
	require.Greater(t, size, 0)

	bufs := [][]byte{make([]byte, size/2+1), make([]byte, size)}
	sizes, err := codec.SerializeChunks(cs, bufs)
	require.NoError(t, err)

	var chunks [][]byte
	for i, n := range sizes {
		chunks = append(chunks, bufs[i][:n])
	}

	decoded, err := codec.DeserializeChunks(chunks)
	require.NoError(t, err)
	out, ok := decoded.(*Changeset)
	require.True(t, ok)
	assert.Equal(t, cs.From, out.From)
	assert.Equal(t, cs.To, out.To)
}

func TestCodecSerializeChunksTooSmall(t *testing.T) {
	cs := &Changeset{From: 1, To: 2, Added: []dns.RR{rr(t, "a.example.com. 300 IN A 192.0.2.5")}}
	var codec Codec
	_, err := codec.SerializeChunks(cs, [][]byte{make([]byte, 1)})
	assert.Error(t, err)
}

func TestCodecMergeCancelsMatchingAddRemove(t *testing.T) {
	acc := &Changeset{
		From:  1,
		To:    2,
		Added: []dns.RR{rr(t, "a.example.com. 300 IN A 192.0.2.5")},
	}
	next := &Changeset{
		From:    2,
		To:      3,
		Removed: []dns.RR{rr(t, "a.example.com. 300 IN A 192.0.2.5")},
	}

	var codec Codec
	merged, err := codec.Merge(acc, next)
	require.NoError(t, err)
	out := merged.(*Changeset)

	assert.Empty(t, out.Added)
	assert.Empty(t, out.Removed)
	assert.Equal(t, uint32(3), out.To)
}

func TestCodecMergeDiscontinuity(t *testing.T) {
	acc := &Changeset{From: 1, To: 2}
	next := &Changeset{From: 5, To: 6}
	var codec Codec
	_, err := codec.Merge(acc, next)
	assert.Error(t, err)
}

func TestCodecMergeKeepsUnmatchedRemoval(t *testing.T) {
	acc := &Changeset{From: 1, To: 2}
	next := &Changeset{
		From:    2,
		To:      3,
		Removed: []dns.RR{rr(t, "stale.example.com. 300 IN A 192.0.2.9")},
	}
	var codec Codec
	merged, err := codec.Merge(acc, next)
	require.NoError(t, err)
	out := merged.(*Changeset)
	require.Len(t, out.Removed, 1)
}
