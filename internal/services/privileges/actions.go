package privileges

// Action name classification. Action names are hierarchical,
// slash-separated strings; the scope of an action is decided by
// prefix, the way the downstream store names its transport actions.

const (
	// ActionTenantPrefix marks tenant-scoped actions.
	ActionTenantPrefix = "palisade:tenant:"
	// ActionTenantRead is the prefix of the read-only tenant subset.
	ActionTenantRead = "palisade:tenant:read/"

	// ActionRestore is the snapshot restore action.
	ActionRestore = "cluster:admin/snapshot/restore"

	// ActionDeleteIndex is synthesized for remove_index alias actions.
	ActionDeleteIndex = "indices:admin/delete"
	// ActionWriteIndex is synthesized for restore write checks and
	// bulk index/create items.
	ActionWriteIndex = "indices:data/write/index"
	// ActionWriteDelete is synthesized for bulk delete items.
	ActionWriteDelete = "indices:data/write/delete"
	// ActionWriteUpdate is synthesized for bulk update items.
	ActionWriteUpdate = "indices:data/write/update"

	// ActionSearchShards locates the shards a search would hit and so
	// additionally requires the search permission on its targets.
	ActionSearchShards = "indices:admin/shards/search_shards"
	// ActionSearch is the plain search action.
	ActionSearch = "indices:data/read/search"
	// ActionManageAliases is synthesized when an index is created with
	// aliases attached.
	ActionManageAliases = "indices:admin/aliases"
)

// clusterActionPrefixes classify actions that are checked against
// cluster-level grants rather than per-index grants.
var clusterActionPrefixes = []string{
	"cluster:",
	"indices:admin/template/",
	"indices:data/read/scroll",
}

// compositeActions span multiple indices in one body. With composite
// checking enabled they additionally require a cluster-level grant for
// the envelope action before per-item checks run.
var compositeActions = map[string]struct{}{
	"indices:data/write/bulk":    {},
	"indices:data/read/mget":     {},
	"indices:data/read/msearch":  {},
	"indices:data/read/mtv":      {},
	"indices:data/write/reindex": {},
}

// protectedDeniedActionPatterns are actions never allowed against the
// engine's own configuration index, regardless of role grants.
var protectedDeniedActionPatterns = []string{
	"indices:data/write*",
	"indices:admin/close",
	"indices:admin/delete",
}

// dnfofActionPatterns are the action classes eligible for the
// narrow-to-permitted-subset rewrite instead of a hard deny.
var dnfofActionPatterns = []string{
	"indices:data/read/*",
	"indices:admin/mappings/fields/get*",
	"indices:admin/shards/search_shards*",
}

// searchActionPattern classifies the read actions the filtered-alias
// check applies to.
const searchActionPattern = "indices:data/read/*search*"

// IsClusterAction reports whether the action is checked against
// cluster-level grants.
func IsClusterAction(action string) bool {
	for _, prefix := range clusterActionPrefixes {
		if len(action) >= len(prefix) && action[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// IsTenantAction reports whether the action is tenant-scoped.
func IsTenantAction(action string) bool {
	return len(action) >= len(ActionTenantPrefix) && action[:len(ActionTenantPrefix)] == ActionTenantPrefix
}

// IsCompositeAction reports whether the action is a multi-item
// envelope (bulk, multi-get, multi-search, reindex).
func IsCompositeAction(action string) bool {
	_, ok := compositeActions[action]
	return ok
}

// IsDNFOFAction reports whether the narrowing rewrite may apply.
func IsDNFOFAction(action string) bool {
	return MatchAny(dnfofActionPatterns, action)
}

// IsSearchAction reports whether the filtered-alias check applies.
func IsSearchAction(action string) bool {
	return Match(searchActionPattern, action)
}

// IsProtectedDeniedAction reports whether the action is on the
// always-deny list for the protected configuration index.
func IsProtectedDeniedAction(action string) bool {
	return MatchAny(protectedDeniedActionPatterns, action)
}
