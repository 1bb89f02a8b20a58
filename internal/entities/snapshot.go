package entities

// FilteredAliasMode controls how ambiguous filtered aliases are handled.
type FilteredAliasMode string

const (
	// FilteredAliasWarn logs the ambiguity and allows the request.
	FilteredAliasWarn FilteredAliasMode = "warn"
	// FilteredAliasDisallow denies requests with ambiguous filtered aliases.
	FilteredAliasDisallow FilteredAliasMode = "disallow"
	// FilteredAliasNone allows silently.
	FilteredAliasNone FilteredAliasMode = "nowarn"
)

// DynamicSettings are the evaluation-behavior switches carried inside
// a configuration snapshot. They change together with the rest of the
// snapshot, never independently.
type DynamicSettings struct {
	CompositeEnabled     bool              // Require cluster-level grants for bulk/multi-* actions
	DoNotFailOnForbidden bool              // Narrow requests to the permitted index subset instead of denying
	AllowEmptyReduce     bool              // Permit an empty result from the narrowing step for read actions
	MultiRolespanEnabled bool              // Permission coverage may accumulate across roles
	FilteredAliasMode    FilteredAliasMode // Policy for multiple filtered aliases on one index
	MultitenancyEnabled  bool              // Tenant checks active; disabled falls back to the global tenant
	GlobalTenant         string            // Name of the shared fallback tenant
	DashboardsIndex      string            // Backing index of the dashboards application
}

// DefaultDynamicSettings returns the settings used when the
// configuration does not override them.
func DefaultDynamicSettings() DynamicSettings {
	return DynamicSettings{
		CompositeEnabled:     true,
		DoNotFailOnForbidden: false,
		AllowEmptyReduce:     false,
		MultiRolespanEnabled: false,
		FilteredAliasMode:    FilteredAliasWarn,
		MultitenancyEnabled:  true,
		GlobalTenant:         "global_tenant",
		DashboardsIndex:      ".dashboards",
	}
}

// ConfigSnapshot is the full authorization configuration at one point
// in time. Snapshots are immutable once built; configuration changes
// produce a new snapshot with a new version, which replaces the old
// one in a single atomic swap. The evaluator never observes a mix of
// old and new tables.
type ConfigSnapshot struct {
	Version      string                  // Monotonic snapshot identifier (opaque to the engine)
	Roles        map[string]*Role        // Role name -> role
	ActionGroups map[string]*ActionGroup // Group name -> group
	RoleMappings []*RoleMapping          // Principal -> role rules
	Tenants      map[string]*Tenant      // Tenant name -> tenant
	Dynamic      DynamicSettings
}
