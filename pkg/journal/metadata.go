package journal

import (
	"encoding/binary"
	"fmt"

	"github.com/outpostdns/outpost/pkg/kv"
)

// version is the BCD-encoded journal format version this implementation
// reads and writes. Its leading decimal digit (1) must match the leading
// digit of whatever version is found on disk, mirroring the original
// implementation's one-major-version compatibility check.
const version uint32 = 10

// flag bits stored in the metadata scalar "flags".
const (
	flagLastFlushedValid uint32 = 1 << iota
	flagSerialToValid
	flagMergedSerialValid
	flagDirtySerialValid
)

const (
	keyFirstSerial  = "first_serial"
	keyLastSerial   = "last_serial"
	keyLastSerialTo = "last_serial_to"
	keyLastFlushed  = "last_flushed"
	keyMergedSerial = "merged_serial"
	keyDirtySerial  = "dirty_serial"
	keyFlags        = "flags"
	keyVersion      = "version"
	keyZoneName     = "zone_name"
)

// metadata is the journal's persisted scalar state, mirrored in memory. It
// is never mutated directly outside of a txn's shadow copy; see txn.go.
type metadata struct {
	firstSerial  uint32
	lastSerial   uint32
	lastSerialTo uint32
	lastFlushed  uint32
	mergedSerial uint32
	dirtySerial  uint32
	flags        uint32
	version      uint32
	zoneName     string
}

func (m metadata) lastFlushedValid() bool  { return m.flags&flagLastFlushedValid != 0 }
func (m metadata) serialToValid() bool     { return m.flags&flagSerialToValid != 0 }
func (m metadata) mergedSerialValid() bool { return m.flags&flagMergedSerialValid != 0 }
func (m metadata) dirtySerialValid() bool  { return m.flags&flagDirtySerialValid != 0 }

func putU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func getU32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: scalar has %d bytes, want 4", ErrMalformed, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// loadMetadata reads all scalars from the meta bucket. A journal with no
// "version" key is treated as freshly created: loadMetadata returns a zero
// metadata with version and zoneName set, ready for storeMetadata to
// persist on the caller's first commit.
func loadMetadata(txn kv.Txn, zoneName string) (metadata, bool, error) {
	raw, err := txn.Find(kv.BucketMeta, []byte(keyVersion))
	if err == kv.ErrNotFound {
		return metadata{version: version, zoneName: zoneName}, true, nil
	}
	if err != nil {
		return metadata{}, false, fmt.Errorf("load metadata: %w", err)
	}
	diskVersion, err := getU32(raw)
	if err != nil {
		return metadata{}, false, err
	}
	if diskVersion/10 != version/10 {
		return metadata{}, false, fmt.Errorf("%w: on-disk version %d, implementation %d",
			ErrUnsupportedVersion, diskVersion, version)
	}

	m := metadata{version: diskVersion}
	for _, f := range []struct {
		key string
		dst *uint32
	}{
		{keyFirstSerial, &m.firstSerial},
		{keyLastSerial, &m.lastSerial},
		{keyLastSerialTo, &m.lastSerialTo},
		{keyLastFlushed, &m.lastFlushed},
		{keyMergedSerial, &m.mergedSerial},
		{keyDirtySerial, &m.dirtySerial},
		{keyFlags, &m.flags},
	} {
		v, err := txn.Find(kv.BucketMeta, []byte(f.key))
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return metadata{}, false, fmt.Errorf("load metadata %s: %w", f.key, err)
		}
		u, err := getU32(v)
		if err != nil {
			return metadata{}, false, fmt.Errorf("metadata %s: %w", f.key, err)
		}
		*f.dst = u
	}

	nameRaw, err := txn.Find(kv.BucketMeta, []byte(keyZoneName))
	if err != nil && err != kv.ErrNotFound {
		return metadata{}, false, fmt.Errorf("load metadata zone_name: %w", err)
	}
	m.zoneName = string(nameRaw)

	return m, false, nil
}

// storeMetadata writes every field of m into the meta bucket. Called on
// commit with a txn's whole shadow copy; it writes every field rather than
// only those that changed since the last commit — metadata is tiny
// (a handful of u32 scalars) so there is no meaningful cost to writing it
// in full on every mutating commit.
func storeMetadata(txn kv.Txn, m metadata) error {
	scalars := map[string]uint32{
		keyFirstSerial:  m.firstSerial,
		keyLastSerial:   m.lastSerial,
		keyLastSerialTo: m.lastSerialTo,
		keyLastFlushed:  m.lastFlushed,
		keyMergedSerial: m.mergedSerial,
		keyDirtySerial:  m.dirtySerial,
		keyFlags:        m.flags,
		keyVersion:      m.version,
	}
	for k, v := range scalars {
		if err := txn.Insert(kv.BucketMeta, []byte(k), putU32(v)); err != nil {
			return fmt.Errorf("store metadata %s: %w", k, err)
		}
	}
	if err := txn.Insert(kv.BucketMeta, []byte(keyZoneName), []byte(m.zoneName)); err != nil {
		return fmt.Errorf("store metadata zone_name: %w", err)
	}
	return nil
}
