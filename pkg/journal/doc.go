/*
Package journal implements a persistent, chunked, bounded-size log of
per-zone DNS changesets on top of an ordered key-value store.

A Handle owns one zone's journal: a sequence of changesets identified by
their SOA-from serial, stored as one or more bounded-size chunks, with
metadata tracking the oldest and newest serials, how much of the chain has
been flushed to a zone file, and (optionally) a single merged changeset
collapsing everything not yet flushed.

# Architecture

	┌───────────────────────── JOURNAL HANDLE ──────────────────────────┐
	│                                                                     │
	│  ┌───────────────────────────────────────────────────┐           │
	│  │                  Public API (journal.go)            │           │
	│  │  Open · Close · Store · StoreMany · Load            │           │
	│  │  FlushMark · Count · Check · SerialRange            │           │
	│  └───────────────────────┬───────────────────────────┘           │
	│                          │                                         │
	│     ┌────────────────────┼─────────────────────┐                 │
	│     ▼                    ▼                      ▼                 │
	│  ┌────────┐      ┌──────────────┐      ┌─────────────────┐      │
	│  │ insert │      │   reclaim    │      │      merge       │      │
	│  │ engine │◄────►│   engine     │◄────►│     engine       │      │
	│  └───┬────┘      └──────┬───────┘      └────────┬─────────┘      │
	│      │                  │                        │                │
	│      └──────────────────┼────────────────────────┘                │
	│                         ▼                                         │
	│              ┌───────────────────────┐                           │
	│              │   transaction shim     │  (txn.go)                │
	│              │  shadow metadata +     │                           │
	│              │  poisoned-txn guard    │                           │
	│              └──────────┬─────────────┘                           │
	│                         │                                         │
	│         ┌───────────────┼────────────────┐                       │
	│         ▼                                ▼                       │
	│  ┌─────────────┐                 ┌───────────────┐               │
	│  │  iterator    │                 │   metadata     │              │
	│  │ (chunk/      │                 │   store        │              │
	│  │  changeset)  │                 │ (metadata.go)  │              │
	│  └──────┬───────┘                 └───────┬────────┘              │
	│         │                                  │                      │
	│         └────────────────┬─────────────────┘                      │
	│                          ▼                                        │
	│                 ┌─────────────────┐                               │
	│                 │   kv.Store       │  (pkg/kv, bbolt-backed)       │
	│                 │  data/meta/merged│                               │
	│                 └─────────────────┘                               │
	└─────────────────────────────────────────────────────────────────┘

# Chunking

A changeset too large for one chunk (60 KiB including its 12-byte header)
is split across several, keyed (serial_from, chunk_index) so the store's
lexical key ordering walks chunks in the order they must be reassembled.

# Space management

Before an insert, the insertion engine compares the store's occupied
fraction of fslimit against a threshold that relaxes once a merged
changeset exists (less slack is needed once old changesets have been
collapsed). If space is short, it reclaims already-flushed changesets; if
that is not enough, it asks the merge engine to either merge unflushed
changesets (if the zone's policy allows skipping zone-file flush) or
returns ErrBusy so the caller can trigger an external flush and retry.

# Crash recovery

A changeset whose insertion spans more than one underlying transaction
(because it was too large to buffer in one) sets a "dirty serial" marker
before each intermediate commit. If the process dies before the whole
changeset lands, the next Open finds the marker and deletes the partial
chunks before serving any request.
*/
package journal
