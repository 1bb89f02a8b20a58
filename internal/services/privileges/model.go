package privileges

import (
	"context"
	"fmt"
	"time"

	"github.com/palisadehq/palisade/internal/entities"
)

// Model is everything the evaluator derives from one configuration
// snapshot: the compiled role table, the role mapper, the tenant
// table and the dynamic settings. All tables are built off to the
// side and published together; the evaluator swaps a single pointer
// and therefore never observes a torn mix of old and new tables.
type Model struct {
	version     string
	dynamic     entities.DynamicSettings
	roleMapper  *RoleMapper
	roleIndex   *RoleIndex
	tenantIndex *TenantIndex
}

// BuildModel compiles a configuration snapshot into an evaluation
// model. The tenant table rebuild fans out to a bounded worker pool;
// if it fails or times out, no model is returned and the caller keeps
// the previous one.
func BuildModel(ctx context.Context, snapshot *entities.ConfigSnapshot,
	tenantWorkers int, tenantTimeout time.Duration) (*Model, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("build model: nil snapshot")
	}

	expander := NewActionGroupExpander(snapshot.ActionGroups)

	tenantIndex, err := BuildTenantIndex(ctx, snapshot.Roles, snapshot.Tenants, tenantWorkers, tenantTimeout)
	if err != nil {
		return nil, fmt.Errorf("build model %s: %w", snapshot.Version, err)
	}

	return &Model{
		version:     snapshot.Version,
		dynamic:     snapshot.Dynamic,
		roleMapper:  NewRoleMapper(snapshot.RoleMappings),
		roleIndex:   NewRoleIndex(snapshot.Roles, expander),
		tenantIndex: tenantIndex,
	}, nil
}

// Version returns the snapshot version the model was built from.
func (m *Model) Version() string {
	return m.version
}

// Dynamic returns the snapshot's dynamic settings.
func (m *Model) Dynamic() entities.DynamicSettings {
	return m.dynamic
}

// MapRoles resolves the user's mapped role names.
func (m *Model) MapRoles(user *entities.User) []string {
	return m.roleMapper.MapRoles(user)
}

// MapTenants resolves the user's tenant access table.
func (m *Model) MapTenants(user *entities.User, roleNames []string) map[string]bool {
	return m.tenantIndex.MapTenants(user, roleNames)
}

// Filter returns the role view for the given role names.
func (m *Model) Filter(roleNames []string) *RoleView {
	return m.roleIndex.Filter(roleNames)
}
