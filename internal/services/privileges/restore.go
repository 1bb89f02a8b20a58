package privileges

import (
	"context"
	"regexp"

	"github.com/palisadehq/palisade/internal/entities"
)

// Snapshot restore is special-cased: it is a cluster action on the
// surface, but what it writes is decided by the snapshot's contents
// and the request's rename rules, not by the request's index list. The
// sub-evaluation checks, in order: restore privilege, global-state
// restore, the protected index among the restore targets, and, when
// enabled, write privileges over the renamed target indices.
func (e *PrivilegeEvaluator) evaluateRestore(ctx context.Context, model *Model,
	user *entities.User, view *RoleView, action string, req Request, decision *Decision) (*Decision, error) {

	if !e.opts.EnableSnapshotRestorePrivilege {
		e.logger.Info("snapshot restore is disabled, denying", "user", user.Name)
		e.audit.LogDenied(action, user, nil)
		return decision.deny([]string{action}), nil
	}

	if !view.ImpliesClusterPermission(action) {
		e.logDenied(model, user, action, nil, view.Names())
		e.audit.LogDenied(action, user, nil)
		return decision.deny([]string{action}), nil
	}

	restore, ok := req.(RestoreRequest)
	if !ok {
		// Shape cannot be introspected; deny conservatively.
		e.logger.Warn("restore request without restore capabilities denied", "action", action)
		return decision.deny([]string{action}), nil
	}

	if restore.IncludeGlobalState() {
		e.logger.Info("restore with global state denied", "user", user.Name)
		e.audit.LogDenied(action, user, nil)
		return decision.deny([]string{action}), nil
	}

	sources, err := e.restoreSourceIndices(ctx, restore)
	if err != nil {
		e.logger.Warn("snapshot contents could not be resolved, denying restore",
			"repository", restore.Repository(), "snapshot", restore.Snapshot(), "error", err)
		return decision.deny([]string{action}), nil
	}

	targets := renameRestoreTargets(sources, restore.RenamePattern(), restore.RenameReplacement())

	for _, name := range append(append([]string{}, sources...), targets...) {
		if name == e.opts.ProtectedIndex || name == entities.All {
			e.audit.LogProtectedResourceAttempt(action, user)
			return decision.deny([]string{action}), nil
		}
	}

	if e.opts.CheckRestoreWritePrivileges {
		resolved := entities.NewResolved(targets, []string{entities.All})
		required := []string{ActionWriteIndex}
		var granted bool
		if model.dynamic.MultiRolespanEnabled {
			granted = view.ImpliesTypePermGlobal(ctx, resolved, user, required, e.resolver)
		} else {
			granted = view.ImpliesTypePerm(ctx, resolved, user, required, e.resolver)
		}
		if !granted {
			e.logDenied(model, user, action, resolved, view.Names())
			e.audit.LogDenied(action, user, resolved)
			return decision.deny(required), nil
		}
	}

	return decision.allow(), nil
}

// restoreSourceIndices asks the snapshot resolver which indices the
// restore would read. Without a resolver the contents are unknowable
// and the caller denies.
func (e *PrivilegeEvaluator) restoreSourceIndices(ctx context.Context, restore RestoreRequest) ([]string, error) {
	if e.snapshots == nil {
		return nil, ErrNotInitialized
	}
	return e.snapshots.SnapshotIndices(ctx, restore.Repository(), restore.Snapshot(), restore.RequestedIndices())
}

// renameRestoreTargets applies the request's rename rule to each
// source index. An empty or invalid pattern leaves the names as they
// are, which keeps the check conservative: the unrenamed source names
// are then the write targets.
func renameRestoreTargets(sources []string, pattern, replacement string) []string {
	if pattern == "" {
		return append([]string{}, sources...)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return append([]string{}, sources...)
	}
	targets := make([]string, 0, len(sources))
	for _, src := range sources {
		targets = append(targets, re.ReplaceAllString(src, replacement))
	}
	return targets
}
