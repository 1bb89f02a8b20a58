package privileges

import "errors"

var (
	// ErrNotInitialized is returned when no configuration snapshot has
	// been delivered yet. It is an error state, not a deny decision:
	// callers must treat it as "authorization unavailable".
	ErrNotInitialized = errors.New("privileges: no configuration snapshot loaded")

	// ErrFilterMismatch is returned when a call in an ongoing request
	// chain computes document or field filters that differ from the
	// ones already attached earlier in the chain. The request must
	// fail rather than pick either set.
	ErrFilterMismatch = errors.New("privileges: document/field filters differ from filters already attached to this request chain")

	// ErrRebuildTimeout is returned when the tenant table rebuild did
	// not finish within its deadline. The previous snapshot stays
	// authoritative; a partial table is never published.
	ErrRebuildTimeout = errors.New("privileges: tenant table rebuild timed out")
)
