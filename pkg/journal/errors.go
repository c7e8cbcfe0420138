package journal

import "errors"

// Error kinds named in the journal's error taxonomy. Operations report the
// conditions these name with one of them (possibly wrapped with extra
// context via fmt.Errorf's %w); errors from the kv store or the Codec are
// passed through, usually wrapped with context, rather than mapped onto them.
var (
	// ErrInval marks a caller precondition violation: nil handle, empty
	// path, or an operation invoked in the wrong lifecycle state.
	ErrInval = errors.New("journal: invalid argument")

	// ErrNotFound marks a requested serial or key that is absent.
	ErrNotFound = errors.New("journal: not found")

	// ErrBusy marks space exhaustion that only the external zone-file
	// flusher can resolve; the caller should flush and retry.
	ErrBusy = errors.New("journal: busy, flush required")

	// ErrNoSpace marks space exhaustion that persisted even after an
	// attempted flush-or-merge; the insertion was not applied.
	ErrNoSpace = errors.New("journal: no space left")

	// ErrMalformed marks on-disk data that violates an invariant the
	// journal relies on; it is not recoverable without operator action.
	ErrMalformed = errors.New("journal: malformed data")

	// ErrUnsupportedVersion marks a persisted journal version the running
	// implementation cannot read.
	ErrUnsupportedVersion = errors.New("journal: unsupported version")

	// ErrRetryAfterFlush marks an open() call that must be retried after
	// the external flusher persists the zone and the journal reopens; it
	// is returned when the store's existing on-disk size exceeds the
	// requested fslimit but unflushed data remains.
	ErrRetryAfterFlush = errors.New("journal: retry after flush")

	// ErrSemCheck signals (not a hard failure) that the zone name stored
	// on disk differs from the one the caller requested.
	ErrSemCheck = errors.New("journal: zone name mismatch")
)
