package privileges

import (
	"reflect"
	"testing"

	"github.com/palisadehq/palisade/internal/entities"
)

func TestRoleMapper_MapRoles(t *testing.T) {
	mappings := []*entities.RoleMapping{
		{Name: "admin", Users: []string{"root", "admin-*"}},
		{Name: "dev", BackendRoles: []string{"developers"}},
		{Name: "release", AndBackendRoles: []string{"developers", "oncall-*"}},
		{Name: "intranet", Hosts: []string{"10.0.*", "*.corp.example.com"}},
	}
	mapper := NewRoleMapper(mappings)

	tests := []struct {
		name string
		user *entities.User
		want []string
	}{
		{
			name: "exact user pattern",
			user: &entities.User{Name: "admin-jane"},
			want: []string{"admin"},
		},
		{
			name: "single backend role",
			user: &entities.User{Name: "bob", BackendRoles: []string{"developers"}},
			want: []string{"dev"},
		},
		{
			name: "conjunctive backend roles require all patterns",
			user: &entities.User{Name: "carol", BackendRoles: []string{"developers", "oncall-week12"}},
			want: []string{"dev", "release"},
		},
		{
			name: "conjunctive rule not satisfied by one role alone",
			user: &entities.User{Name: "dave", BackendRoles: []string{"oncall-week12"}},
			want: []string{},
		},
		{
			name: "host match by address",
			user: &entities.User{Name: "eve", Caller: &entities.NetworkCaller{Address: "10.0.3.7"}},
			want: []string{"intranet"},
		},
		{
			name: "host match by resolved hostname",
			user: &entities.User{Name: "eve", Caller: &entities.NetworkCaller{Address: "192.168.1.1", Hostname: "ws17.corp.example.com"}},
			want: []string{"intranet"},
		},
		{
			name: "no rule matches",
			user: &entities.User{Name: "mallory"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapper.MapRoles(tt.user)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MapRoles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleMapper_MapRoles_NilUser(t *testing.T) {
	mapper := NewRoleMapper([]*entities.RoleMapping{{Name: "admin", Users: []string{"*"}}})
	if got := mapper.MapRoles(nil); len(got) != 0 {
		t.Errorf("expected empty role set for nil user, got %v", got)
	}
}

func TestRoleMapper_MapRoles_OrderIndependent(t *testing.T) {
	forward := []*entities.RoleMapping{
		{Name: "a", Users: []string{"alice"}},
		{Name: "b", BackendRoles: []string{"devs"}},
	}
	backward := []*entities.RoleMapping{forward[1], forward[0]}

	user := &entities.User{Name: "alice", BackendRoles: []string{"devs"}}
	got1 := NewRoleMapper(forward).MapRoles(user)
	got2 := NewRoleMapper(backward).MapRoles(user)
	if !reflect.DeepEqual(got1, got2) {
		t.Errorf("rule order changed the result: %v vs %v", got1, got2)
	}
}

func TestRoleMapper_MapRoles_Deduplicates(t *testing.T) {
	mappings := []*entities.RoleMapping{
		{Name: "dev", Users: []string{"alice"}},
		{Name: "dev", BackendRoles: []string{"developers"}},
	}
	user := &entities.User{Name: "alice", BackendRoles: []string{"developers"}}
	got := NewRoleMapper(mappings).MapRoles(user)
	if !reflect.DeepEqual(got, []string{"dev"}) {
		t.Errorf("expected deduplicated [dev], got %v", got)
	}
}
