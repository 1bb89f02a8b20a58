package privileges

import (
	"reflect"
	"testing"

	"github.com/palisadehq/palisade/internal/entities"
)

func newTestExpander(groups map[string][]string) *ActionGroupExpander {
	entityGroups := make(map[string]*entities.ActionGroup, len(groups))
	for name, perms := range groups {
		entityGroups[name] = &entities.ActionGroup{Name: name, Permissions: perms}
	}
	return NewActionGroupExpander(entityGroups)
}

func TestActionGroupExpander_Expand(t *testing.T) {
	expander := newTestExpander(map[string][]string{
		"READ":        {"indices:data/read/*", "indices:admin/mappings/fields/get*"},
		"WRITE":       {"indices:data/write/*"},
		"CRUD":        {"READ", "WRITE"},
		"SELF_CYCLE":  {"SELF_CYCLE", "indices:data/read/get"},
		"CYCLE_A":     {"CYCLE_B", "perm:a"},
		"CYCLE_B":     {"CYCLE_A", "perm:b"},
		"EMPTY_GROUP": {},
	})

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "literal permission kept verbatim",
			input: []string{"indices:data/read/search"},
			want:  []string{"indices:data/read/search"},
		},
		{
			name:  "single group substituted",
			input: []string{"WRITE"},
			want:  []string{"indices:data/write/*"},
		},
		{
			name:  "nested group of groups recurses",
			input: []string{"CRUD"},
			want:  []string{"indices:admin/mappings/fields/get*", "indices:data/read/*", "indices:data/write/*"},
		},
		{
			name:  "group and literal mix deduplicated",
			input: []string{"READ", "indices:data/read/*"},
			want:  []string{"indices:admin/mappings/fields/get*", "indices:data/read/*"},
		},
		{
			name:  "self cycle terminates",
			input: []string{"SELF_CYCLE"},
			want:  []string{"indices:data/read/get"},
		},
		{
			name:  "mutual cycle terminates with both members",
			input: []string{"CYCLE_A"},
			want:  []string{"perm:a", "perm:b"},
		},
		{
			name:  "empty group contributes nothing",
			input: []string{"EMPTY_GROUP"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expander.Expand(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
