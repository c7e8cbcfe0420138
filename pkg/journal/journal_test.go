package journal_test

import (
	"testing"

	"github.com/miekg/dns"

	"github.com/outpostdns/outpost/pkg/changeset"
	"github.com/outpostdns/outpost/pkg/journal"
)

func mustRR(t *testing.T, text string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(text)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", text, err)
	}
	return rr
}

func openTestJournal(t *testing.T, fslimit int64, policy journal.Policy) *journal.Handle {
	t.Helper()
	dir := t.TempDir()
	h, err := journal.Open(dir, "example.com.", fslimit, changeset.Codec{}, policy)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func cs(t *testing.T, from, to uint32, n int) *changeset.Changeset {
	t.Helper()
	c := &changeset.Changeset{From: from, To: to}
	for i := 0; i < n; i++ {
		c.Added = append(c.Added, mustRR(t, "rr"+string(rune('a'+i%26))+".example.com. 300 IN A 192.0.2.1"))
	}
	return c
}

func TestSimpleRoundTrip(t *testing.T) {
	h := openTestJournal(t, 2<<20, nil)

	c := cs(t, 0, 1, 8)
	if err := h.Store(c); err != nil {
		t.Fatalf("Store: %v", err)
	}

	n, err := h.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}

	loaded, err := h.Load(0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Load returned %d changesets, want 1", len(loaded))
	}
	got := loaded[0].(*changeset.Changeset)
	if got.SerialFrom() != 0 || got.SerialTo() != 1 {
		t.Errorf("Load = [%d,%d], want [0,1]", got.SerialFrom(), got.SerialTo())
	}

	if err := h.FlushMark(); err != nil {
		t.Fatalf("FlushMark: %v", err)
	}

	report, err := h.Check(journal.CheckSilent)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Errorf("Check reported inconsistencies: %+v", report.Inconsistencies)
	}
}

func TestStoreManyThenLoadFromMiddle(t *testing.T) {
	h := openTestJournal(t, 2<<20, nil)

	if err := h.StoreMany([]journal.Changeset{
		cs(t, 0, 1, 2),
		cs(t, 1, 2, 2),
		cs(t, 2, 3, 2),
	}); err != nil {
		t.Fatalf("StoreMany: %v", err)
	}

	loaded, err := h.Load(1)
	if err != nil {
		t.Fatalf("Load(1): %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load(1) returned %d changesets, want 2", len(loaded))
	}
	if loaded[0].(*changeset.Changeset).SerialFrom() != 1 {
		t.Errorf("Load(1)[0].From = %d, want 1", loaded[0].(*changeset.Changeset).SerialFrom())
	}
}

func TestContinuityBreakBusyUntilFlushed(t *testing.T) {
	h := openTestJournal(t, 2<<20, nil)

	if err := h.Store(cs(t, 0, 1, 2)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// A changeset whose SerialFrom does not continue the chain (here 5,
	// versus the expected 1) cannot be accepted while changeset 0->1 is
	// still unflushed: dropping it would lose data Busy exists to protect.
	if err := h.Store(cs(t, 5, 6, 2)); err != journal.ErrBusy {
		t.Fatalf("Store across continuity break with nothing flushed = %v, want ErrBusy", err)
	}

	if err := h.FlushMark(); err != nil {
		t.Fatalf("FlushMark: %v", err)
	}

	// Now that everything is flushed, the retry discards the stale chain
	// and starts over at the new serial.
	if err := h.Store(cs(t, 5, 6, 2)); err != nil {
		t.Fatalf("Store after flush: %v", err)
	}

	n, err := h.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count after continuity break = %d, want 1 (old chain dropped)", n)
	}

	empty, first, last, err := h.SerialRange()
	if err != nil {
		t.Fatalf("SerialRange: %v", err)
	}
	if empty || first != 5 || last != 5 {
		t.Errorf("SerialRange = (empty=%v, %d, %d), want (false, 5, 5)", empty, first, last)
	}
}

func TestDuplicateInsertionBusyUntilFlushed(t *testing.T) {
	h := openTestJournal(t, 2<<20, nil)

	for from := uint32(0); from < 3; from++ {
		if err := h.Store(cs(t, from, from+1, 2)); err != nil {
			t.Fatalf("Store(%d): %v", from, err)
		}
	}
	// Chain is now 0->1, 1->2, 2->3 (first=0, last=2, lastTo=3), all unflushed.

	// A changeset continuing from lastSerialTo (3) but whose SerialTo (1)
	// duplicates an already-present serial_from can't be accepted while the
	// chain up through that duplicate is still unflushed.
	if err := h.Store(cs(t, 3, 1, 3)); err != journal.ErrBusy {
		t.Fatalf("Store duplicate-serial_to with nothing flushed = %v, want ErrBusy", err)
	}

	if err := h.FlushMark(); err != nil {
		t.Fatalf("FlushMark: %v", err)
	}

	// Now that everything is flushed, the retry truncates the chain up
	// through the duplicate before accepting the new changeset, so only
	// the untouched tail (2->3) plus the new entry (3->1) survive.
	if err := h.Store(cs(t, 3, 1, 3)); err != nil {
		t.Fatalf("Store duplicate-serial_to after flush: %v", err)
	}

	n, err := h.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count after duplicate insert = %d, want 2 (2->3, and the replacement 3->1)", n)
	}
}

func TestDropEmptiesJournal(t *testing.T) {
	h := openTestJournal(t, 2<<20, nil)
	if err := h.Store(cs(t, 0, 1, 4)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := h.Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	empty, _, _, err := h.SerialRange()
	if err != nil {
		t.Fatalf("SerialRange: %v", err)
	}
	if !empty {
		t.Error("SerialRange should report empty after Drop")
	}
}

func TestBusyWithoutMergePolicy(t *testing.T) {
	// A tiny fslimit forces makeSpace to look for room immediately; with
	// AlwaysFlush and nothing flushed yet, it must surface ErrBusy rather
	// than silently dropping unflushed data.
	h := openTestJournal(t, 1 << 20, journal.AlwaysFlush)

	var lastErr error
	for from := uint32(0); from < 64; from++ {
		lastErr = h.Store(cs(t, from, from+1, 32))
		if lastErr != nil {
			break
		}
	}
	if lastErr != journal.ErrBusy {
		t.Fatalf("Store = %v, expected it to eventually return ErrBusy once the fslimit fills with nothing flushed", lastErr)
	}
}

func TestMergePolicyCompactsInsteadOfBusy(t *testing.T) {
	h := openTestJournal(t, 1 << 20, journal.AlwaysMerge)

	for from := uint32(0); from < 64; from++ {
		if err := h.Store(cs(t, from, from+1, 32)); err != nil {
			t.Fatalf("Store(%d) with AlwaysMerge: %v", from, err)
		}
	}

	report, err := h.Check(journal.CheckSilent)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Errorf("Check reported inconsistencies after merging: %+v", report.Inconsistencies)
	}
}
