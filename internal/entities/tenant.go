package entities

// Tenant is a named data partition with its own read/read-write
// access control, distinct from index-level permissions.
type Tenant struct {
	Name        string // Tenant name
	Description string // Free-form description from configuration
}
