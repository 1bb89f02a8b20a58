package privileges

import (
	"context"
	"sort"
	"strings"

	"github.com/palisadehq/palisade/internal/entities"
)

// typeGrant is one type pattern with its fully expanded permissions.
type typeGrant struct {
	typePattern string
	permissions []string
}

// indexGrant is one compiled index-permission entry of a role.
type indexGrant struct {
	indexPattern string // May still contain ${user.name} / ${user_name}
	typeGrants   []typeGrant
	dlsQuery     string
	flsFields    []string
}

// compiledRole is a role with all action groups expanded. Compilation
// happens once per configuration snapshot; compiled roles are
// immutable afterwards.
type compiledRole struct {
	name         string
	clusterPerms []string
	grants       []*indexGrant
}

// RoleIndex is the per-snapshot permission table over all configured
// roles. Filter restricts it to a principal's mapped roles so that
// matching never iterates configuration outside those roles.
type RoleIndex struct {
	roles map[string]*compiledRole
}

// NewRoleIndex compiles the snapshot's roles, expanding action groups
// up front. Roles that grant nothing are kept; evaluation skips them.
func NewRoleIndex(roles map[string]*entities.Role, expander *ActionGroupExpander) *RoleIndex {
	compiled := make(map[string]*compiledRole, len(roles))
	for name, role := range roles {
		cr := &compiledRole{
			name:         name,
			clusterPerms: expander.Expand(role.ClusterPermissions),
		}
		for _, ip := range role.IndexPermissions {
			grant := &indexGrant{
				indexPattern: ip.IndexPattern,
				dlsQuery:     ip.DLSQuery,
				flsFields:    append([]string{}, ip.FLSFields...),
			}
			typePatterns := make([]string, 0, len(ip.TypePermissions))
			for tp := range ip.TypePermissions {
				typePatterns = append(typePatterns, tp)
			}
			sort.Strings(typePatterns)
			for _, tp := range typePatterns {
				grant.typeGrants = append(grant.typeGrants, typeGrant{
					typePattern: tp,
					permissions: expander.Expand(ip.TypePermissions[tp]),
				})
			}
			cr.grants = append(cr.grants, grant)
		}
		compiled[name] = cr
	}
	return &RoleIndex{roles: compiled}
}

// Filter returns the view restricted to the given role names. Unknown
// names are ignored; the view's role order is sorted for deterministic
// evaluation and logging.
func (ri *RoleIndex) Filter(names []string) *RoleView {
	view := &RoleView{}
	for _, name := range names {
		if role, ok := ri.roles[name]; ok {
			view.roles = append(view.roles, role)
		}
	}
	sort.Slice(view.roles, func(i, j int) bool { return view.roles[i].name < view.roles[j].name })
	return view
}

// RoleView is the slice of a RoleIndex visible to one principal.
type RoleView struct {
	roles []*compiledRole
}

// Names returns the names of the roles in this view.
func (v *RoleView) Names() []string {
	names := make([]string, len(v.roles))
	for i, r := range v.roles {
		names[i] = r.name
	}
	return names
}

// ImpliesClusterPermission reports whether any role's cluster
// permissions cover the action.
func (v *RoleView) ImpliesClusterPermission(action string) bool {
	for _, role := range v.roles {
		if MatchAny(role.clusterPerms, action) {
			return true
		}
	}
	return false
}

// ImpliesTypePerm reports whether a single role covers every requested
// (index, type) pair with all required permissions. Each role starts
// from a fresh working set; coverage may not be split across roles.
func (v *RoleView) ImpliesTypePerm(ctx context.Context, resolved *entities.Resolved,
	user *entities.User, actions []string, resolver ResourceResolver) bool {
	for _, role := range v.roles {
		working := newWorkingSet(resolved)
		role.removeCovered(ctx, working, resolved, user, actions, resolver)
		if len(working) == 0 {
			return true
		}
	}
	return false
}

// ImpliesTypePermGlobal is the multi-role-span variant: pairs removed
// by any role count toward one shared working set, so coverage for the
// same resource may be assembled from several roles.
func (v *RoleView) ImpliesTypePermGlobal(ctx context.Context, resolved *entities.Resolved,
	user *entities.User, actions []string, resolver ResourceResolver) bool {
	working := newWorkingSet(resolved)
	for _, role := range v.roles {
		if len(working) == 0 {
			break
		}
		role.removeCovered(ctx, working, resolved, user, actions, resolver)
	}
	return len(working) == 0
}

// Reduce computes the subset of the requested indices the principal
// does have all required permissions for, used by the request-narrowing
// path. With multiRolespan, coverage per index may accumulate across
// roles; without it, the result is the largest index set a single role
// fully covers, so that a follow-up check over the reduced set is
// guaranteed to pass under the same mode.
func (v *RoleView) Reduce(ctx context.Context, resolved *entities.Resolved,
	user *entities.User, actions []string, resolver ResourceResolver, multiRolespan bool) []string {
	if multiRolespan {
		working := newWorkingSet(resolved)
		for _, role := range v.roles {
			role.removeCovered(ctx, working, resolved, user, actions, resolver)
		}
		return coveredIndices(resolved, working)
	}

	var best []string
	for _, role := range v.roles {
		working := newWorkingSet(resolved)
		role.removeCovered(ctx, working, resolved, user, actions, resolver)
		covered := coveredIndices(resolved, working)
		if len(covered) > len(best) {
			best = covered
		}
	}
	return best
}

// AggregateFilters collects document-level and field-level filters of
// every grant whose index pattern participates in the resolution. Each
// filter is recorded twice: under the grant's original pattern and
// under every concrete requested index the pattern covers, so that
// downstream consumers can look up by either key. Aggregation is a
// pure union; it never depends on which role granted the permission.
func (v *RoleView) AggregateFilters(ctx context.Context, resolved *entities.Resolved,
	user *entities.User, resolver ResourceResolver) (dls map[string][]string, fls map[string][]string) {
	dlsSet := make(map[string]map[string]struct{})
	flsSet := make(map[string]map[string]struct{})

	for _, role := range v.roles {
		for _, grant := range role.grants {
			if grant.dlsQuery == "" && len(grant.flsFields) == 0 {
				continue
			}
			pattern := substituteUser(grant.indexPattern, user)
			matched := matchGrantIndices(ctx, pattern, resolved, resolver)
			if len(matched) == 0 {
				continue
			}
			keys := append(matched, pattern)
			for _, key := range keys {
				if grant.dlsQuery != "" {
					addToSet(dlsSet, key, substituteUser(grant.dlsQuery, user))
				}
				for _, field := range grant.flsFields {
					addToSet(flsSet, key, field)
				}
			}
		}
	}

	return sortedSetMap(dlsSet), sortedSetMap(flsSet)
}

// removeCovered removes from the working set every (index, type) pair
// this role covers with all required permissions.
func (r *compiledRole) removeCovered(ctx context.Context, working map[entities.IndexType]struct{},
	resolved *entities.Resolved, user *entities.User, actions []string, resolver ResourceResolver) {
	for _, grant := range r.grants {
		pattern := substituteUser(grant.indexPattern, user)
		matched := matchGrantIndices(ctx, pattern, resolved, resolver)
		if len(matched) == 0 {
			continue
		}
		for _, tg := range grant.typeGrants {
			if !satisfiesAll(tg.permissions, actions) {
				continue
			}
			for _, index := range matched {
				for it := range working {
					if it.Index == index && Match(tg.typePattern, it.Type) {
						delete(working, it)
					}
				}
			}
		}
	}
}

// matchGrantIndices returns the requested indices a grant pattern
// covers. Wildcard patterns glob-match the requested names directly;
// concrete patterns are first expanded through the resolver (alias and
// date-math expansion) and then compared exactly.
func matchGrantIndices(ctx context.Context, pattern string, resolved *entities.Resolved, resolver ResourceResolver) []string {
	var matched []string
	if ContainsWildcard(pattern) {
		for _, idx := range resolved.Indices {
			if Match(pattern, idx) {
				matched = append(matched, idx)
			}
		}
		return matched
	}

	names := []string{pattern}
	if resolver != nil {
		if concrete, err := resolver.ResolvePattern(ctx, pattern); err == nil {
			names = append(names, concrete...)
		}
		// Resolution failures contribute nothing; the grant still
		// matches its literal name below.
	}
	for _, name := range names {
		if resolved.ContainsIndex(name) && name != entities.All {
			matched = append(matched, name)
		}
	}
	return dedup(matched)
}

// satisfiesAll reports whether the expanded permission patterns cover
// every required action (conjunctive; composite requests may require
// several underlying permissions at once).
func satisfiesAll(permissions, actions []string) bool {
	if len(actions) == 0 {
		return false
	}
	for _, action := range actions {
		if !MatchAny(permissions, action) {
			return false
		}
	}
	return true
}

func newWorkingSet(resolved *entities.Resolved) map[entities.IndexType]struct{} {
	working := make(map[entities.IndexType]struct{})
	for _, it := range resolved.IndexTypes() {
		working[it] = struct{}{}
	}
	return working
}

// coveredIndices returns the requested indices with no remaining
// uncovered (index, type) pair in the working set, sorted.
func coveredIndices(resolved *entities.Resolved, working map[entities.IndexType]struct{}) []string {
	var result []string
	for _, idx := range resolved.Indices {
		remaining := false
		for it := range working {
			if it.Index == idx {
				remaining = true
				break
			}
		}
		if !remaining {
			result = append(result, idx)
		}
	}
	sort.Strings(result)
	return result
}

func substituteUser(s string, user *entities.User) string {
	if user == nil || !strings.Contains(s, "${user") {
		return s
	}
	s = strings.ReplaceAll(s, "${user.name}", user.Name)
	return strings.ReplaceAll(s, "${user_name}", user.Name)
}

func addToSet(m map[string]map[string]struct{}, key, value string) {
	if m[key] == nil {
		m[key] = make(map[string]struct{})
	}
	m[key][value] = struct{}{}
}

func sortedSetMap(m map[string]map[string]struct{}) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	result := make(map[string][]string, len(m))
	for key, set := range m {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		result[key] = values
	}
	return result
}

func dedup(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
