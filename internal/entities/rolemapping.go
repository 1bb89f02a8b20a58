package entities

// RoleMapping maps principals to a role by one of four independent
// conditions. A principal satisfying any single condition is mapped
// to the role; AndBackendRoles is the only conjunctive condition.
type RoleMapping struct {
	Name            string   // Role this mapping assigns
	Users           []string // User name patterns
	BackendRoles    []string // Backend role patterns (any match)
	AndBackendRoles []string // Backend role patterns that must ALL match
	Hosts           []string // Source address/hostname patterns
}
