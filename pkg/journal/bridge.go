package journal

// Changeset is the journal's view of a zone transition: the minimum any
// concrete changeset type must expose so the journal can place it in serial
// order. Everything else about a changeset — its record set, its wire
// format — is opaque to the journal and belongs entirely to Codec.
type Changeset interface {
	SerialFrom() uint32
	SerialTo() uint32
}

// Codec is the serializer bridge: the external producer/consumer contract a
// journal is opened with. pkg/changeset provides the concrete implementation
// this repository tests against; a DNSSEC-aware or compressed changeset
// representation could supply its own without changing anything in this
// package.
type Codec interface {
	// SerializedSize returns the total number of bytes SerializeChunks
	// writes for cs, used to size the chunk buffers passed to it.
	SerializedSize(cs any) (int, error)

	// SerializeChunks fills bufs in order with cs's encoded form and
	// reports how many bytes landed in each buffer actually used. It
	// returns an error if cs does not fit across len(bufs) buffers.
	SerializeChunks(cs any, bufs [][]byte) (sizes []int, err error)

	// DeserializeChunks reassembles a changeset from its ordered chunk
	// payloads.
	DeserializeChunks(chunks [][]byte) (any, error)

	// Merge folds next onto acc (both previously produced by
	// DeserializeChunks) and returns the combined changeset. acc.To must
	// equal next.From.
	Merge(acc, next any) (any, error)
}
