package privileges

import (
	"context"
	"sync"
	"time"

	"github.com/palisadehq/palisade/internal/entities"
)

const (
	// DefaultTenantBuildWorkers bounds the fan-out of the tenant table
	// rebuild.
	DefaultTenantBuildWorkers = 10
	// DefaultTenantBuildTimeout bounds the join after fan-out. On
	// timeout the rebuild aborts and the previous table stays live.
	DefaultTenantBuildTimeout = 30 * time.Second
)

// TenantIndex is the per-snapshot role -> tenant -> access table.
// It is immutable once built.
type TenantIndex struct {
	byRole map[string]map[string]bool // role -> tenant -> isReadWrite
}

type roleTenants struct {
	role    string
	tenants map[string]bool
}

// BuildTenantIndex computes the tenant table for all roles, fanning
// the per-role extraction out to a bounded worker pool. The join is
// bounded by timeout: if workers do not finish in time the build
// returns ErrRebuildTimeout and no partial table, so the caller keeps
// the previous snapshot authoritative.
func BuildTenantIndex(ctx context.Context, roles map[string]*entities.Role,
	tenants map[string]*entities.Tenant, workers int, timeout time.Duration) (*TenantIndex, error) {
	if workers <= 0 {
		workers = DefaultTenantBuildWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTenantBuildTimeout
	}

	tenantNames := make([]string, 0, len(tenants))
	for name := range tenants {
		tenantNames = append(tenantNames, name)
	}

	jobs := make(chan *entities.Role)
	// Buffered so that workers never block on send after an aborted
	// join; an abort must not leak the pool.
	results := make(chan roleTenants, len(roles))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for role := range jobs {
				results <- roleTenants{role: role.Name, tenants: extractRoleTenants(role, tenantNames)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, role := range roles {
			select {
			case jobs <- role:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	byRole := make(map[string]map[string]bool, len(roles))
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case rt, ok := <-results:
			if !ok {
				return &TenantIndex{byRole: byRole}, nil
			}
			byRole[rt.role] = rt.tenants
		case <-deadline.C:
			return nil, ErrRebuildTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// extractRoleTenants matches a role's tenant patterns against the
// configured tenants. Read-write dominates read-only when several
// patterns of the same role cover one tenant.
func extractRoleTenants(role *entities.Role, tenantNames []string) map[string]bool {
	result := make(map[string]bool, len(role.TenantPermissions))
	for pattern, access := range role.TenantPermissions {
		rw := access == entities.TenantReadWrite
		if !ContainsWildcard(pattern) {
			result[pattern] = result[pattern] || rw
			continue
		}
		for _, name := range tenantNames {
			if Match(pattern, name) {
				result[name] = result[name] || rw
			}
		}
	}
	return result
}

// MapTenants returns tenant -> isReadWrite for the user's roles. The
// user's private tenant (their own name) is always present and always
// read-write. Across roles, read-write dominates read-only; the result
// does not depend on role order.
func (t *TenantIndex) MapTenants(user *entities.User, roleNames []string) map[string]bool {
	if user == nil {
		return map[string]bool{}
	}
	result := map[string]bool{user.Name: true}
	for _, role := range roleNames {
		for tenant, rw := range t.byRole[role] {
			result[tenant] = result[tenant] || rw
		}
	}
	return result
}

// HasTenantPermission checks the requested tenant action against the
// user's tenant table. When multitenancy is disabled or no tenant was
// requested, the check falls back to the global tenant. Read-write
// access grants every tenant action; read-only grants only the read
// subset.
func (t *TenantIndex) HasTenantPermission(user *entities.User, roleNames []string,
	action string, dynamic entities.DynamicSettings) bool {
	if user == nil {
		return false
	}
	tenant := user.RequestedTenant
	if !dynamic.MultitenancyEnabled || tenant == "" {
		tenant = dynamic.GlobalTenant
	}

	tenants := t.MapTenants(user, roleNames)
	rw, ok := tenants[tenant]
	if !ok {
		return false
	}

	granted := []string{ActionTenantRead + "*"}
	if rw {
		granted = []string{ActionTenantPrefix + "*"}
	}
	return MatchAny(granted, action)
}
