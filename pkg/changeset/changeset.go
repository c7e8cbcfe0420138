// Package changeset provides the default, concrete changeset type the
// journal package is exercised against: an added/removed pair of DNS
// resource records bracketed by a SOA-from and SOA-to serial.
//
// The journal treats changesets as opaque (it only needs SerialFrom/SerialTo
// and a serialize/deserialize/merge contract); this package is one possible
// producer/consumer implementation of that contract, built on
// github.com/miekg/dns, and is what outpost's tests and CLI use.
package changeset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Changeset is a single zone transition: the records added and removed in
// moving the zone from SOA serial From to SOA serial To.
type Changeset struct {
	From    uint32
	To      uint32
	Added   []dns.RR
	Removed []dns.RR
}

// SerialFrom implements journal.Changeset.
func (c *Changeset) SerialFrom() uint32 { return c.From }

// SerialTo implements journal.Changeset.
func (c *Changeset) SerialTo() uint32 { return c.To }

// encode renders the changeset to its flat on-disk form: two big-endian u32
// serials, then the added and removed RR sets as length-prefixed zone-file
// text blocks (one RR per line, via dns.RR.String()).
func (c *Changeset) encode() []byte {
	added := rrsToText(c.Added)
	removed := rrsToText(c.Removed)

	buf := make([]byte, 0, 16+len(added)+len(removed))
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], c.From)
	binary.BigEndian.PutUint32(hdr[4:8], c.To)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(added)))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(len(removed)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, added...)
	buf = append(buf, removed...)
	return buf
}

func decode(b []byte) (*Changeset, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("changeset: truncated header (%d bytes)", len(b))
	}
	from := binary.BigEndian.Uint32(b[0:4])
	to := binary.BigEndian.Uint32(b[4:8])
	addedLen := binary.BigEndian.Uint32(b[8:12])
	removedLen := binary.BigEndian.Uint32(b[12:16])

	rest := b[16:]
	if uint64(addedLen)+uint64(removedLen) > uint64(len(rest)) {
		return nil, fmt.Errorf("changeset: length prefixes exceed payload (%d+%d > %d)",
			addedLen, removedLen, len(rest))
	}
	addedText := rest[:addedLen]
	removedText := rest[addedLen : addedLen+removedLen]

	added, err := textToRRs(addedText)
	if err != nil {
		return nil, fmt.Errorf("changeset: decode added set: %w", err)
	}
	removed, err := textToRRs(removedText)
	if err != nil {
		return nil, fmt.Errorf("changeset: decode removed set: %w", err)
	}

	return &Changeset{From: from, To: to, Added: added, Removed: removed}, nil
}

func rrsToText(rrs []dns.RR) []byte {
	var b strings.Builder
	for _, rr := range rrs {
		b.WriteString(rr.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func textToRRs(text []byte) ([]dns.RR, error) {
	if len(text) == 0 {
		return nil, nil
	}
	var rrs []dns.RR
	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rr, err := dns.NewRR(line)
		if err != nil {
			return nil, fmt.Errorf("parse RR %q: %w", line, err)
		}
		rrs = append(rrs, rr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rrs, nil
}
