package privileges

import (
	"sort"

	"github.com/palisadehq/palisade/internal/entities"
)

// ActionGroupExpander flattens action-group references into literal
// permission patterns. Groups may nest; expansion recurses and breaks
// cycles by never revisiting a group within one expansion.
type ActionGroupExpander struct {
	groups map[string][]string
}

// NewActionGroupExpander creates an expander from the snapshot's groups.
func NewActionGroupExpander(groups map[string]*entities.ActionGroup) *ActionGroupExpander {
	flat := make(map[string][]string, len(groups))
	for name, g := range groups {
		flat[name] = g.Permissions
	}
	return &ActionGroupExpander{groups: flat}
}

// Expand resolves each input string: a configured group name is
// substituted by its (recursively expanded) member list, anything else
// is kept verbatim as a literal permission or wildcard pattern. The
// result is sorted and deduplicated.
func (e *ActionGroupExpander) Expand(permissions []string) []string {
	seen := make(map[string]struct{})
	visiting := make(map[string]struct{})
	for _, p := range permissions {
		e.expandOne(p, seen, visiting)
	}

	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

func (e *ActionGroupExpander) expandOne(perm string, seen, visiting map[string]struct{}) {
	members, isGroup := e.groups[perm]
	if !isGroup {
		seen[perm] = struct{}{}
		return
	}
	if _, inProgress := visiting[perm]; inProgress {
		// Cyclic group reference; skip the back edge.
		return
	}
	visiting[perm] = struct{}{}
	for _, m := range members {
		e.expandOne(m, seen, visiting)
	}
	delete(visiting, perm)
}
