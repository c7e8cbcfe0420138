package journal

// Tunable space-management constants, named after the ratios they gate
// rather than after any implementation detail.
const (
	// fslimitMin is the smallest fslimit Open will honor; smaller requests
	// are silently raised to it.
	fslimitMin = 1 << 20 // 1 MiB

	// keepFree is the fraction of fslimit insertion tries to keep free
	// when no merged changeset exists yet.
	keepFree = 0.5

	// keepMerged is the fraction of fslimit insertion tries to keep free
	// once a merged changeset is present.
	keepMerged = 0.33

	// keepForMerge is the fraction of fslimit insertion tries to keep
	// free while merging is allowed but no merged changeset exists yet.
	keepForMerge = 0.67

	// disposeRatio multiplies the minimum bytes a reclamation pass must
	// free, so a single pass buys headroom for several future inserts
	// instead of reclaiming exactly enough for one.
	disposeRatio = 3

	// maxInsertTxnFraction bounds how much of fslimit a single insertion
	// may write before it is forced to commit mid-changeset and continue
	// in a fresh transaction (see insert.go's dirty-serial fallback).
	maxInsertTxnFraction = 0.05

	// estimatedPageOverhead is the per-chunk accounting fudge-factor
	// reclamation uses when it cannot ask the store for its real page
	// size; see kv.Store.PageSize, which is preferred when available.
	estimatedPageOverhead = 4096
)
