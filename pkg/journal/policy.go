package journal

// Policy answers the one external question the journal asks before it will
// fall back to internal compaction: whether merging unflushed changesets is
// allowed for a zone, in place of waiting for an external zone-file flush.
//
// pkg/config's Config implements Policy by reading a per-zone
// zonefile-sync setting; tests may supply a literal func-backed Policy.
type Policy interface {
	// MergeAllowed reports whether the journal may merge unflushed
	// changesets for zoneName instead of returning ErrBusy to await an
	// external flush. True when the zone has zone-file sync disabled
	// (sync interval < 0).
	MergeAllowed(zoneName string) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(zoneName string) bool

// MergeAllowed implements Policy.
func (f PolicyFunc) MergeAllowed(zoneName string) bool { return f(zoneName) }

// AlwaysFlush is a Policy that never allows merging, forcing every space
// shortfall to be resolved by an external zone-file flush.
var AlwaysFlush Policy = PolicyFunc(func(string) bool { return false })

// AlwaysMerge is a Policy that always allows merging; useful for zones
// configured with zonefile-sync disabled, and in tests.
var AlwaysMerge Policy = PolicyFunc(func(string) bool { return true })
