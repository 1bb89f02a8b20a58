package privileges

import (
	"context"
	"log/slog"
	"sort"

	"github.com/palisadehq/palisade/internal/entities"
)

// AliasCheckResult is the verdict of the filtered-alias check.
type AliasCheckResult int

const (
	// AliasAllow passes the request through.
	AliasAllow AliasCheckResult = iota
	// AliasWarn allows the request but flags the ambiguity.
	AliasWarn
	// AliasDeny rejects the request.
	AliasDeny
)

// FilteredAliasGuard detects a concrete index reachable through more
// than one filter-carrying alias on a read action. The engine only
// guarantees correct enforcement of a single filtering alias per
// index; stacking semantics are undefined, so the configured policy
// decides: warn logs and allows, disallow denies, anything else allows
// silently.
type FilteredAliasGuard struct {
	logger *slog.Logger
}

// NewFilteredAliasGuard creates a guard logging through the given
// logger (nil uses the default).
func NewFilteredAliasGuard(logger *slog.Logger) *FilteredAliasGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilteredAliasGuard{logger: logger}
}

// Check inspects the resolved indices of a request. Only read/search
// shaped actions are checked; everything else passes.
func (g *FilteredAliasGuard) Check(ctx context.Context, resolved *entities.Resolved,
	action string, mode entities.FilteredAliasMode, resolver ResourceResolver) AliasCheckResult {
	if !IsSearchAction(action) {
		return AliasAllow
	}
	if resolver == nil || resolved == nil || resolved.IsEmpty() {
		return AliasAllow
	}

	result := AliasAllow
	for index, aliases := range resolver.FilteredAliases(ctx, resolved) {
		if len(aliases) < 2 {
			continue
		}
		sorted := append([]string{}, aliases...)
		sort.Strings(sorted)

		switch mode {
		case entities.FilteredAliasDisallow:
			g.logger.Warn("index reachable through multiple filtered aliases, denying",
				"index", index, "aliases", sorted, "action", action)
			return AliasDeny
		case entities.FilteredAliasWarn:
			g.logger.Warn("index reachable through multiple filtered aliases",
				"index", index, "aliases", sorted, "action", action)
			result = AliasWarn
		default:
			// Silent allow.
		}
	}
	return result
}
