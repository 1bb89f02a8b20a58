package privileges

import (
	"sort"

	"github.com/palisadehq/palisade/internal/entities"
)

// RoleMapper resolves a principal to the set of role names it is
// mapped to. It is built once per configuration snapshot and is
// immutable afterwards, so it may be shared across goroutines freely.
type RoleMapper struct {
	mappings []*entities.RoleMapping
}

// NewRoleMapper creates a RoleMapper from the snapshot's mapping rules.
func NewRoleMapper(mappings []*entities.RoleMapping) *RoleMapper {
	return &RoleMapper{mappings: mappings}
}

// MapRoles returns the sorted, deduplicated set of role names the user
// is mapped to. A nil user or an empty mapping table yields an empty
// set, never an error; authorization then denies everything that needs
// a role. The result is independent of rule order.
func (m *RoleMapper) MapRoles(user *entities.User) []string {
	if user == nil || m == nil {
		return nil
	}

	matched := make(map[string]struct{})
	for _, rule := range m.mappings {
		if m.ruleMatches(rule, user) {
			matched[rule.Name] = struct{}{}
		}
	}

	result := make([]string, 0, len(matched))
	for name := range matched {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ruleMatches checks the four independent mapping conditions. A rule
// contributes its role as soon as any one condition matches.
func (m *RoleMapper) ruleMatches(rule *entities.RoleMapping, user *entities.User) bool {
	if MatchAny(rule.Users, user.Name) {
		return true
	}
	if MatchAnyCandidate(rule.BackendRoles, user.BackendRoles) {
		return true
	}
	if AllPatternsMatched(rule.AndBackendRoles, user.BackendRoles) {
		return true
	}
	if user.Caller != nil {
		if user.Caller.Address != "" && MatchAny(rule.Hosts, user.Caller.Address) {
			return true
		}
		if user.Caller.Hostname != "" && MatchAny(rule.Hosts, user.Caller.Hostname) {
			return true
		}
	}
	return false
}
