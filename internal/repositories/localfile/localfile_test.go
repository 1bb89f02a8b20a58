package localfile

import (
	"context"
	"reflect"
	"testing"

	"github.com/palisadehq/palisade/internal/entities"
)

func TestRepository_Load_Complete(t *testing.T) {
	repo := NewRepository("testdata/complete")
	snapshot, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if snapshot.Version != "v42" {
		t.Errorf("Version = %q, want v42", snapshot.Version)
	}

	logsReader := snapshot.Roles["logs_reader"]
	if logsReader == nil {
		t.Fatal("role logs_reader missing")
	}
	if !reflect.DeepEqual(logsReader.ClusterPermissions, []string{"CLUSTER_MONITOR"}) {
		t.Errorf("cluster permissions = %v", logsReader.ClusterPermissions)
	}
	if len(logsReader.IndexPermissions) != 1 {
		t.Fatalf("expected 1 index permission, got %d", len(logsReader.IndexPermissions))
	}
	ip := logsReader.IndexPermissions[0]
	if ip.IndexPattern != "logs-*" {
		t.Errorf("index pattern = %q", ip.IndexPattern)
	}
	if !reflect.DeepEqual(ip.TypePermissions["*"], []string{"READ"}) {
		t.Errorf("type permissions = %v", ip.TypePermissions)
	}
	if logsReader.TenantPermissions["finance"] != entities.TenantReadOnly {
		t.Errorf("tenant access = %v", logsReader.TenantPermissions)
	}

	hr := snapshot.Roles["hr_analyst"]
	if hr == nil {
		t.Fatal("role hr_analyst missing")
	}
	hrIP := hr.IndexPermissions[0]
	if hrIP.DLSQuery != `{"term":{"dept":"hr"}}` {
		t.Errorf("dls query = %q", hrIP.DLSQuery)
	}
	if !reflect.DeepEqual(hrIP.FLSFields, []string{"name", "department"}) {
		t.Errorf("fls fields = %v", hrIP.FLSFields)
	}
	if _, reserved := hrIP.TypePermissions["_dls_"]; reserved {
		t.Error("_dls_ must not appear as a type pattern")
	}
	if hr.TenantPermissions["hr"] != entities.TenantReadWrite {
		t.Errorf("tenant access = %v", hr.TenantPermissions)
	}

	if len(snapshot.RoleMappings) != 2 {
		t.Fatalf("expected 2 role mappings, got %d", len(snapshot.RoleMappings))
	}
	var hrMapping *entities.RoleMapping
	for _, m := range snapshot.RoleMappings {
		if m.Name == "hr_analyst" {
			hrMapping = m
		}
	}
	if hrMapping == nil {
		t.Fatal("mapping hr_analyst missing")
	}
	if !reflect.DeepEqual(hrMapping.AndBackendRoles, []string{"hr", "analysts"}) {
		t.Errorf("and_backendroles = %v", hrMapping.AndBackendRoles)
	}
	if !reflect.DeepEqual(hrMapping.Hosts, []string{"10.20.*"}) {
		t.Errorf("hosts = %v", hrMapping.Hosts)
	}

	if !reflect.DeepEqual(snapshot.ActionGroups["CRUD"].Permissions, []string{"READ", "indices:data/write/*"}) {
		t.Errorf("CRUD group = %v", snapshot.ActionGroups["CRUD"].Permissions)
	}

	if snapshot.Tenants["finance"].Description == "" {
		t.Error("tenant description missing")
	}

	dynamic := snapshot.Dynamic
	if !dynamic.DoNotFailOnForbidden || !dynamic.MultiRolespanEnabled {
		t.Errorf("dynamic overrides not applied: %+v", dynamic)
	}
	if dynamic.FilteredAliasMode != entities.FilteredAliasDisallow {
		t.Errorf("filtered alias mode = %v", dynamic.FilteredAliasMode)
	}
	if dynamic.GlobalTenant != "shared" {
		t.Errorf("global tenant = %q", dynamic.GlobalTenant)
	}
	// Untouched settings keep their defaults.
	if !dynamic.CompositeEnabled || !dynamic.MultitenancyEnabled {
		t.Errorf("defaults lost: %+v", dynamic)
	}
}

func TestRepository_Load_MissingFilesAreEmptySections(t *testing.T) {
	repo := NewRepository("testdata/minimal")
	snapshot, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.Roles) != 0 || len(snapshot.RoleMappings) != 0 {
		t.Errorf("expected empty sections, got %d roles / %d mappings", len(snapshot.Roles), len(snapshot.RoleMappings))
	}
	if snapshot.Version == "" {
		t.Error("a digest version must be assigned when config.yml is absent")
	}
}

func TestRepository_Load_VersionIsStable(t *testing.T) {
	repo := NewRepository("testdata/minimal")
	a, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Version != b.Version {
		t.Errorf("unchanged directory produced different versions: %q vs %q", a.Version, b.Version)
	}
}

func TestRepository_Load_InvalidPermissionsShape(t *testing.T) {
	repo := NewRepository("testdata/invalid")
	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected a parse error for a non-list permission value")
	}
}
