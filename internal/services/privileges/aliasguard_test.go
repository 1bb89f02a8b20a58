package privileges

import (
	"context"
	"testing"

	"github.com/palisadehq/palisade/internal/entities"
)

func TestFilteredAliasGuard_Check(t *testing.T) {
	ambiguous := &mockResolver{
		filtered: map[string][]string{"logs-2024-01": {"hr-view", "audit-view"}},
	}
	single := &mockResolver{
		filtered: map[string][]string{"logs-2024-01": {"hr-view"}},
	}
	resolved := entities.NewResolved([]string{"logs-2024-01"}, []string{"_all"})
	guard := NewFilteredAliasGuard(nil)

	tests := []struct {
		name     string
		resolver ResourceResolver
		action   string
		mode     entities.FilteredAliasMode
		want     AliasCheckResult
	}{
		{
			name:     "disallow mode denies ambiguous aliases",
			resolver: ambiguous,
			action:   "indices:data/read/search",
			mode:     entities.FilteredAliasDisallow,
			want:     AliasDeny,
		},
		{
			name:     "warn mode allows with warning",
			resolver: ambiguous,
			action:   "indices:data/read/search",
			mode:     entities.FilteredAliasWarn,
			want:     AliasWarn,
		},
		{
			name:     "other mode allows silently",
			resolver: ambiguous,
			action:   "indices:data/read/search",
			mode:     entities.FilteredAliasNone,
			want:     AliasAllow,
		},
		{
			name:     "single filtered alias is unambiguous",
			resolver: single,
			action:   "indices:data/read/search",
			mode:     entities.FilteredAliasDisallow,
			want:     AliasAllow,
		},
		{
			name:     "write actions are not checked",
			resolver: ambiguous,
			action:   "indices:data/write/index",
			mode:     entities.FilteredAliasDisallow,
			want:     AliasAllow,
		},
		{
			name:     "msearch is a search-shaped action",
			resolver: ambiguous,
			action:   "indices:data/read/msearch",
			mode:     entities.FilteredAliasDisallow,
			want:     AliasDeny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard.Check(context.Background(), resolved, tt.action, tt.mode, tt.resolver)
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}
