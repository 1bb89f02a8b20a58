package entities

// TenantAccess is the access level a role grants on a tenant.
type TenantAccess string

const (
	// TenantReadOnly grants read access to a tenant.
	TenantReadOnly TenantAccess = "RO"
	// TenantReadWrite grants read and write access to a tenant.
	TenantReadWrite TenantAccess = "RW"
)

// Role is a named bundle of cluster, index and tenant permissions.
// Permission strings may reference action groups; expansion happens
// when the role table is compiled, not here.
type Role struct {
	Name               string                  // Role name (config key)
	ClusterPermissions []string                // Cluster-level permission patterns
	IndexPermissions   []*IndexPermission      // Per-resource-pattern grants
	TenantPermissions  map[string]TenantAccess // Tenant name -> access level
}

// IndexPermission grants permissions on indices matching IndexPattern.
// The pattern may contain glob wildcards and the template variables
// ${user.name} / ${user_name}, substituted with the principal's name
// at evaluation time.
type IndexPermission struct {
	IndexPattern    string              // Index or alias name pattern
	TypePermissions map[string][]string // Type pattern -> permission patterns
	DLSQuery        string              // Document-level filter query (empty = none)
	FLSFields       []string            // Field-level allow list (nil = all fields)
}

// IsEmpty reports whether the role grants nothing at all. Empty roles
// are skipped during evaluation instead of being treated as errors.
func (r *Role) IsEmpty() bool {
	if len(r.ClusterPermissions) > 0 || len(r.TenantPermissions) > 0 {
		return false
	}
	for _, ip := range r.IndexPermissions {
		if len(ip.TypePermissions) > 0 || ip.DLSQuery != "" || len(ip.FLSFields) > 0 {
			return false
		}
	}
	return true
}
