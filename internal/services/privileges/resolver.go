package privileges

import (
	"context"

	"github.com/palisadehq/palisade/internal/entities"
)

// ResourceResolver is the host-side collaborator that turns a request
// into the set of concrete indices/aliases and types it touches. The
// engine never resolves names itself; it only consumes this contract:
//
//   - A request shape that cannot expose per-item resources resolves
//     to the "_all" wildcard (maximally strict), never to an error.
//   - Composite requests resolve each sub-item and union the results;
//     the wildcard is absorbing within a batch.
//   - Date-math expressions resolve to concrete dated index names.
//   - "No local indices" (e.g. a purely remote search) resolves to the
//     explicit empty set, distinct from the wildcard, so the engine can
//     short-circuit to "nothing to check".
type ResourceResolver interface {
	// Resolve returns the indices and types the request touches.
	Resolve(ctx context.Context, user *entities.User, action string, req Request) (*entities.Resolved, error)

	// ResolvePattern expands one non-wildcard index or alias name from
	// a role grant into the concrete index names behind it.
	ResolvePattern(ctx context.Context, name string) ([]string, error)

	// HasIndexOrAlias reports whether a concrete index or alias exists.
	HasIndexOrAlias(ctx context.Context, name string) bool

	// FilteredAliases returns, per concrete index touched by the
	// resolution, the names of aliases that carry a document filter.
	FilteredAliases(ctx context.Context, resolved *entities.Resolved) map[string][]string
}

// SnapshotResolver introspects snapshot repositories for the restore
// sub-evaluation. Repository mechanics stay on the host side; the
// engine only needs the index list a snapshot would restore.
type SnapshotResolver interface {
	// SnapshotIndices returns the indices contained in the snapshot,
	// already filtered by the restore request's index list.
	SnapshotIndices(ctx context.Context, repository, snapshot string, requested []string) ([]string, error)
}

// AuditLogger receives security-relevant events. Implementations must
// never block and never propagate failures back into the evaluator.
type AuditLogger interface {
	// LogDenied records a normal policy deny.
	LogDenied(action string, user *entities.User, resolved *entities.Resolved)

	// LogProtectedResourceAttempt records an access attempt against
	// the engine's own protected configuration index.
	LogProtectedResourceAttempt(action string, user *entities.User)
}

// NopAuditLogger discards all events.
type NopAuditLogger struct{}

func (NopAuditLogger) LogDenied(string, *entities.User, *entities.Resolved) {}
func (NopAuditLogger) LogProtectedResourceAttempt(string, *entities.User)   {}

// InterceptorResult is the verdict of a pluggable interceptor.
type InterceptorResult int

const (
	// InterceptorNoOpinion lets the regular evaluation continue.
	InterceptorNoOpinion InterceptorResult = iota
	// InterceptorAllow short-circuits the evaluation to ALLOW.
	InterceptorAllow
	// InterceptorDeny short-circuits the evaluation to DENY.
	InterceptorDeny
)

// Interceptor is an optional override consulted before the regular
// index-permission path. It may rewrite the request (e.g. substitute a
// tenant-scoped index) and then allow or deny outright. A nil
// interceptor means "always no opinion".
type Interceptor interface {
	Intercept(ctx context.Context, user *entities.User, action string, req Request,
		resolved *entities.Resolved, tenants map[string]bool) InterceptorResult
}
