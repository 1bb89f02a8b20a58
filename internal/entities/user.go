package entities

// User represents an authenticated principal as delivered by the
// authentication layer. It is an immutable per-request snapshot; the
// privilege engine only ever reads it.
type User struct {
	Name            string            // Identity name
	BackendRoles    []string          // Group/role memberships from the authentication backend
	RequestedTenant string            // Tenant requested for this call (empty = none)
	Attributes      map[string]string // Custom attributes from the authentication backend
	Caller          *NetworkCaller    // Network origin of the request (nil if unknown)
}

// AnonymousName is the identity assigned to requests that arrive
// without an authenticated principal.
const AnonymousName = "_anonymous"

// AnonymousUser returns the stand-in principal for unauthenticated
// requests. It carries no backend roles and no network caller.
func AnonymousUser() *User {
	return &User{Name: AnonymousName}
}

// NetworkCaller describes where a request came from.
// Both fields are optional; host-based role mapping skips empty values.
type NetworkCaller struct {
	Address  string // IP address, e.g. "10.0.0.17"
	Hostname string // Resolved hostname (empty if reverse lookup was not done)
}

// HasBackendRole returns true if the user carries the given backend role.
func (u *User) HasBackendRole(role string) bool {
	for _, r := range u.BackendRoles {
		if r == role {
			return true
		}
	}
	return false
}
