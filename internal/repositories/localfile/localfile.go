// Package localfile loads the authorization configuration from a
// directory of YAML files: roles.yml, roles_mapping.yml,
// action_groups.yml, tenants.yml and config.yml. Missing files are
// treated as empty sections, not errors, so a minimal setup needs only
// the files it uses.
package localfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/palisadehq/palisade/internal/entities"
)

const (
	rolesFile        = "roles.yml"
	roleMappingsFile = "roles_mapping.yml"
	actionGroupsFile = "action_groups.yml"
	tenantsFile      = "tenants.yml"
	configFile       = "config.yml"

	// Reserved keys inside an index entry's type map.
	dlsKey = "_dls_"
	flsKey = "_fls_"
)

// Repository loads configuration snapshots from a directory.
type Repository struct {
	dir string
}

// NewRepository creates a repository reading from dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// roleEntry is the YAML shape of one role. The values of the index
// type map are mixed: permission lists for type patterns, a query
// string under _dls_ and a field list under _fls_, so they are decoded
// node by node.
type roleEntry struct {
	Cluster []string                        `yaml:"cluster"`
	Indices map[string]map[string]yaml.Node `yaml:"indices"`
	Tenants map[string]string               `yaml:"tenants"`
}

// mappingEntry is the YAML shape of one role mapping.
type mappingEntry struct {
	Users           []string `yaml:"users"`
	BackendRoles    []string `yaml:"backendroles"`
	AndBackendRoles []string `yaml:"and_backendroles"`
	Hosts           []string `yaml:"hosts"`
}

// tenantEntry is the YAML shape of one tenant.
type tenantEntry struct {
	Description string `yaml:"description"`
}

// configEntry is the YAML shape of config.yml.
type configEntry struct {
	Version string `yaml:"version"`
	Dynamic struct {
		CompositeEnabled     *bool  `yaml:"composite_enabled"`
		DoNotFailOnForbidden *bool  `yaml:"do_not_fail_on_forbidden"`
		AllowEmptyReduce     *bool  `yaml:"allow_empty_reduce"`
		MultiRolespanEnabled *bool  `yaml:"multi_rolespan_enabled"`
		FilteredAliasMode    string `yaml:"filtered_alias_mode"`
		MultitenancyEnabled  *bool  `yaml:"multitenancy_enabled"`
		GlobalTenant         string `yaml:"global_tenant"`
		DashboardsIndex      string `yaml:"dashboards_index"`
	} `yaml:"dynamic"`
}

// Load reads and parses all configuration files. The snapshot version
// comes from config.yml; when absent, a digest over all file contents
// is used, so an unchanged directory yields an unchanged version.
func (r *Repository) Load(ctx context.Context) (*entities.ConfigSnapshot, error) {
	snapshot := &entities.ConfigSnapshot{
		Roles:        map[string]*entities.Role{},
		ActionGroups: map[string]*entities.ActionGroup{},
		Tenants:      map[string]*entities.Tenant{},
		Dynamic:      entities.DefaultDynamicSettings(),
	}

	digest := sha256.New()

	roles := map[string]roleEntry{}
	if data, err := r.readFile(rolesFile, digest); err != nil {
		return nil, err
	} else if data != nil {
		if err := yaml.Unmarshal(data, &roles); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rolesFile, err)
		}
	}
	for name, entry := range roles {
		role, err := parseRole(name, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rolesFile, err)
		}
		snapshot.Roles[name] = role
	}

	mappings := map[string]mappingEntry{}
	if data, err := r.readFile(roleMappingsFile, digest); err != nil {
		return nil, err
	} else if data != nil {
		if err := yaml.Unmarshal(data, &mappings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", roleMappingsFile, err)
		}
	}
	for name, entry := range mappings {
		snapshot.RoleMappings = append(snapshot.RoleMappings, &entities.RoleMapping{
			Name:            name,
			Users:           entry.Users,
			BackendRoles:    entry.BackendRoles,
			AndBackendRoles: entry.AndBackendRoles,
			Hosts:           entry.Hosts,
		})
	}

	groups := map[string][]string{}
	if data, err := r.readFile(actionGroupsFile, digest); err != nil {
		return nil, err
	} else if data != nil {
		if err := yaml.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", actionGroupsFile, err)
		}
	}
	for name, permissions := range groups {
		snapshot.ActionGroups[name] = &entities.ActionGroup{Name: name, Permissions: permissions}
	}

	tenants := map[string]tenantEntry{}
	if data, err := r.readFile(tenantsFile, digest); err != nil {
		return nil, err
	} else if data != nil {
		if err := yaml.Unmarshal(data, &tenants); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tenantsFile, err)
		}
	}
	for name, entry := range tenants {
		snapshot.Tenants[name] = &entities.Tenant{Name: name, Description: entry.Description}
	}

	var cfg configEntry
	if data, err := r.readFile(configFile, digest); err != nil {
		return nil, err
	} else if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	}
	applyDynamic(&snapshot.Dynamic, cfg)

	snapshot.Version = cfg.Version
	if snapshot.Version == "" {
		snapshot.Version = hex.EncodeToString(digest.Sum(nil))[:16]
	}
	return snapshot, nil
}

// readFile reads one config file and feeds it into the version digest.
// A missing file returns nil data and no error.
func (r *Repository) readFile(name string, digest interface{ Write([]byte) (int, error) }) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	digest.Write([]byte(name))
	digest.Write(data)
	return data, nil
}

func parseRole(name string, entry roleEntry) (*entities.Role, error) {
	role := &entities.Role{
		Name:               name,
		ClusterPermissions: entry.Cluster,
	}

	for pattern, typeMap := range entry.Indices {
		ip := &entities.IndexPermission{
			IndexPattern:    pattern,
			TypePermissions: map[string][]string{},
		}
		for key, node := range typeMap {
			switch key {
			case dlsKey:
				if err := node.Decode(&ip.DLSQuery); err != nil {
					return nil, fmt.Errorf("role %s, index %s: %s must be a string: %w", name, pattern, dlsKey, err)
				}
			case flsKey:
				if err := node.Decode(&ip.FLSFields); err != nil {
					return nil, fmt.Errorf("role %s, index %s: %s must be a string list: %w", name, pattern, flsKey, err)
				}
			default:
				var permissions []string
				if err := node.Decode(&permissions); err != nil {
					return nil, fmt.Errorf("role %s, index %s, type %s: permissions must be a string list: %w", name, pattern, key, err)
				}
				ip.TypePermissions[key] = permissions
			}
		}
		role.IndexPermissions = append(role.IndexPermissions, ip)
	}

	if len(entry.Tenants) > 0 {
		role.TenantPermissions = map[string]entities.TenantAccess{}
		for tenant, access := range entry.Tenants {
			switch access {
			case string(entities.TenantReadWrite):
				role.TenantPermissions[tenant] = entities.TenantReadWrite
			case string(entities.TenantReadOnly), "":
				role.TenantPermissions[tenant] = entities.TenantReadOnly
			default:
				return nil, fmt.Errorf("role %s, tenant %s: access must be RO or RW, got %q", name, tenant, access)
			}
		}
	}

	return role, nil
}

func applyDynamic(dynamic *entities.DynamicSettings, cfg configEntry) {
	d := cfg.Dynamic
	if d.CompositeEnabled != nil {
		dynamic.CompositeEnabled = *d.CompositeEnabled
	}
	if d.DoNotFailOnForbidden != nil {
		dynamic.DoNotFailOnForbidden = *d.DoNotFailOnForbidden
	}
	if d.AllowEmptyReduce != nil {
		dynamic.AllowEmptyReduce = *d.AllowEmptyReduce
	}
	if d.MultiRolespanEnabled != nil {
		dynamic.MultiRolespanEnabled = *d.MultiRolespanEnabled
	}
	if d.FilteredAliasMode != "" {
		dynamic.FilteredAliasMode = entities.FilteredAliasMode(d.FilteredAliasMode)
	}
	if d.MultitenancyEnabled != nil {
		dynamic.MultitenancyEnabled = *d.MultitenancyEnabled
	}
	if d.GlobalTenant != "" {
		dynamic.GlobalTenant = d.GlobalTenant
	}
	if d.DashboardsIndex != "" {
		dynamic.DashboardsIndex = d.DashboardsIndex
	}
}
