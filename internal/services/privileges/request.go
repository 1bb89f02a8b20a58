package privileges

// Request is the caller-supplied description of the operation being
// authorized. The engine never introspects requests generically;
// instead, a request opts into behavior by implementing the narrow
// capability interfaces below. A request implementing none of them is
// resolved conservatively to the "_all" wildcard by the resolver.
type Request interface{}

// ResourceRequest exposes the index and type names a request targets
// before resolution (aliases and patterns still unexpanded).
type ResourceRequest interface {
	RequestedIndices() []string
	RequestedTypes() []string
}

// CompositeRequest is a batch carrying independent sub-requests
// (bulk, multi-get, multi-search). Each sub-request is resolved on its
// own and may synthesize additional required permissions.
type CompositeRequest interface {
	Subrequests() []Request
}

// BulkOp is the operation kind of one bulk item.
type BulkOp string

const (
	BulkOpIndex  BulkOp = "index"
	BulkOpCreate BulkOp = "create"
	BulkOpUpdate BulkOp = "update"
	BulkOpDelete BulkOp = "delete"
)

// BulkItem is one item of a bulk request.
type BulkItem interface {
	Op() BulkOp
	Index() string
}

// BulkRequest exposes per-item operations so the evaluator can derive
// the exact write permissions a mixed bulk body needs.
type BulkRequest interface {
	Items() []BulkItem
}

// AliasAction is one entry of an alias-update request.
type AliasAction struct {
	Type    string   // "add", "remove" or "remove_index"
	Indices []string // Target indices of the action
}

// AliasesRequest exposes the actions of an alias-update request. A
// remove_index action implies delete-index privilege on its targets.
type AliasesRequest interface {
	AliasActions() []AliasAction
}

// CreateIndexRequest exposes the aliases attached to an index
// creation. Creating an index together with aliases additionally
// requires the alias-management permission.
type CreateIndexRequest interface {
	CreationAliases() []string
}

// RestoreRequest describes a snapshot restore.
type RestoreRequest interface {
	Repository() string
	Snapshot() string
	RequestedIndices() []string
	IncludeGlobalState() bool
	RenamePattern() string
	RenameReplacement() string
}

// ReplaceableRequest can have its index list narrowed in place. The
// "do not fail on forbidden" path uses this to rewrite a request to
// the permitted subset instead of denying it.
type ReplaceableRequest interface {
	ReplaceIndices(indices []string)
}

// CacheableRequest can have its request-level result cache disabled.
// A narrowed request must not serve results cached for the full
// index set.
type CacheableRequest interface {
	DisableRequestCache()
}

// RealtimeRequest can have realtime reads disabled. Narrowed get
// requests fall back to search-visible data only.
type RealtimeRequest interface {
	DisableRealtime()
}
