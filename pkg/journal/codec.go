package journal

import "encoding/binary"

// chunkMax is the maximum size, header included, of a single stored chunk.
const chunkMax = 60 * 1024

// chunkHeaderSize is the encoded size of a chunkHeader.
const chunkHeaderSize = 12

// chunkPayloadMax is the largest payload a single chunk buffer can carry.
const chunkPayloadMax = chunkMax - chunkHeaderSize

// chunkKey identifies one chunk: the changeset's SOA-from serial and the
// chunk's index within that changeset. Encoded big-endian so the key-value
// store's lexical key ordering coincides with numeric (serial, index) order.
type chunkKey struct {
	serialFrom uint32
	index      uint32
}

func (k chunkKey) encode() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], k.serialFrom)
	binary.BigEndian.PutUint32(b[4:8], k.index)
	return b
}

func decodeChunkKey(b []byte) (chunkKey, bool) {
	if len(b) != 8 {
		return chunkKey{}, false
	}
	return chunkKey{
		serialFrom: binary.BigEndian.Uint32(b[0:4]),
		index:      binary.BigEndian.Uint32(b[4:8]),
	}, true
}

// chunkHeader prefixes every stored chunk payload.
type chunkHeader struct {
	serialTo   uint32
	chunkCount uint32
	chunkSize  uint32
}

func (h chunkHeader) encode() []byte {
	b := make([]byte, chunkHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], h.serialTo)
	binary.BigEndian.PutUint32(b[4:8], h.chunkCount)
	binary.BigEndian.PutUint32(b[8:12], h.chunkSize)
	return b
}

func decodeChunkHeader(b []byte) (chunkHeader, bool) {
	if len(b) < chunkHeaderSize {
		return chunkHeader{}, false
	}
	return chunkHeader{
		serialTo:   binary.BigEndian.Uint32(b[0:4]),
		chunkCount: binary.BigEndian.Uint32(b[4:8]),
		chunkSize:  binary.BigEndian.Uint32(b[8:12]),
	}, true
}

// makeChunk assembles one on-disk chunk value: header followed by the
// payload slice (already sized to chunkSize by the caller).
func makeChunk(h chunkHeader, payload []byte) []byte {
	buf := make([]byte, chunkHeaderSize+len(payload))
	copy(buf, h.encode())
	copy(buf[chunkHeaderSize:], payload)
	return buf
}

// splitChunk separates a stored chunk value into its header and payload.
func splitChunk(v []byte) (chunkHeader, []byte, bool) {
	h, ok := decodeChunkHeader(v)
	if !ok {
		return chunkHeader{}, nil, false
	}
	payload := v[chunkHeaderSize:]
	if uint32(len(payload)) < h.chunkSize {
		return chunkHeader{}, nil, false
	}
	return h, payload[:h.chunkSize], true
}
