package privileges

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/palisadehq/palisade/internal/entities"
	"github.com/palisadehq/palisade/pkg/cache"
)

const (
	// ScopeCluster labels decisions on cluster-level actions.
	ScopeCluster = "cluster"
	// ScopeTenant labels decisions on tenant-scoped actions.
	ScopeTenant = "tenant"
	// ScopeIndex labels decisions on index-level actions.
	ScopeIndex = "index"

	// DefaultProtectedIndex is the engine's own configuration index.
	DefaultProtectedIndex = ".palisade"

	defaultDecisionCacheTTL = 5 * time.Minute
)

// DecisionRecorder receives evaluation metrics. Defined here so the
// engine does not depend on a concrete metrics implementation.
type DecisionRecorder interface {
	RecordDecision(scope, outcome string)
	RecordEvaluationDuration(seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string, string)    {}
func (nopRecorder) RecordEvaluationDuration(float64) {}

// Options are the static (non-snapshot) settings of the evaluator.
type Options struct {
	// ProtectedIndex is the engine's own configuration index; write
	// shaped actions against it are denied regardless of roles.
	ProtectedIndex string

	// EnableSnapshotRestorePrivilege allows snapshot restores at all.
	// When false every restore request is denied.
	EnableSnapshotRestorePrivilege bool

	// CheckRestoreWritePrivileges gates the write-privilege check over
	// renamed snapshot restore targets.
	CheckRestoreWritePrivileges bool

	// DecisionCacheTTL bounds how long cluster and tenant decisions
	// may be served from cache. Index decisions are never cached.
	DecisionCacheTTL time.Duration
}

// PrivilegeEvaluator is the decision engine. It is safe for concurrent
// use: the only shared mutable state is the current model, swapped
// atomically on configuration change. Everything per call lives on the
// call's stack.
type PrivilegeEvaluator struct {
	resolver    ResourceResolver
	snapshots   SnapshotResolver
	audit       AuditLogger
	interceptor Interceptor
	guard       *FilteredAliasGuard
	decisions   cache.Cache
	recorder    DecisionRecorder
	logger      *slog.Logger
	opts        Options

	model atomic.Pointer[Model]
}

// NewPrivilegeEvaluator creates an evaluator. The resolver is
// required; snapshots, audit, interceptor, decisionCache and recorder
// may be nil and degrade to safe defaults.
func NewPrivilegeEvaluator(
	resolver ResourceResolver,
	snapshots SnapshotResolver,
	audit AuditLogger,
	interceptor Interceptor,
	decisionCache cache.Cache,
	recorder DecisionRecorder,
	logger *slog.Logger,
	opts Options,
) *PrivilegeEvaluator {
	if audit == nil {
		audit = NopAuditLogger{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ProtectedIndex == "" {
		opts.ProtectedIndex = DefaultProtectedIndex
	}
	if opts.DecisionCacheTTL <= 0 {
		opts.DecisionCacheTTL = defaultDecisionCacheTTL
	}
	return &PrivilegeEvaluator{
		resolver:    resolver,
		snapshots:   snapshots,
		audit:       audit,
		interceptor: interceptor,
		guard:       NewFilteredAliasGuard(logger),
		decisions:   decisionCache,
		recorder:    recorder,
		logger:      logger,
		opts:        opts,
	}
}

// OnModelChanged installs a freshly built model. Delivering the same
// version again is harmless; readers either keep seeing the old
// pointer or the identical new one.
func (e *PrivilegeEvaluator) OnModelChanged(model *Model) {
	e.model.Store(model)
}

// IsInitialized reports whether a configuration snapshot has been
// delivered.
func (e *PrivilegeEvaluator) IsInitialized() bool {
	return e.model.Load() != nil
}

// MapRoles resolves the user's mapped role names under the current
// snapshot. Before initialization it returns the empty set.
func (e *PrivilegeEvaluator) MapRoles(user *entities.User) []string {
	model := e.model.Load()
	if model == nil {
		return nil
	}
	return model.MapRoles(user)
}

// MapTenants resolves the user's tenant access table under the
// current snapshot.
func (e *PrivilegeEvaluator) MapTenants(user *entities.User, roleNames []string) map[string]bool {
	model := e.model.Load()
	if model == nil {
		return map[string]bool{}
	}
	return model.MapTenants(user, roleNames)
}

// DashboardsIndexName returns the configured dashboards backing index.
func (e *PrivilegeEvaluator) DashboardsIndexName() string {
	if model := e.model.Load(); model != nil {
		return model.dynamic.DashboardsIndex
	}
	return entities.DefaultDynamicSettings().DashboardsIndex
}

// MultitenancyEnabled reports the current snapshot's tenancy switch.
func (e *PrivilegeEvaluator) MultitenancyEnabled() bool {
	if model := e.model.Load(); model != nil {
		return model.dynamic.MultitenancyEnabled
	}
	return false
}

// NotFailOnForbiddenEnabled reports whether the narrowing rewrite is
// active.
func (e *PrivilegeEvaluator) NotFailOnForbiddenEnabled() bool {
	if model := e.model.Load(); model != nil {
		return model.dynamic.DoNotFailOnForbidden
	}
	return false
}

// Evaluate decides whether the user may perform the action on the
// resources the request touches. A nil error with Allowed=false is a
// normal policy deny; an error means the evaluation itself could not
// run (engine not initialized, or a filter consistency violation).
func (e *PrivilegeEvaluator) Evaluate(ctx context.Context, user *entities.User, action string, req Request) (*Decision, error) {
	model := e.model.Load()
	if model == nil {
		return nil, ErrNotInitialized
	}

	start := time.Now()
	defer func() {
		e.recorder.RecordEvaluationDuration(time.Since(start).Seconds())
	}()

	roles := model.MapRoles(user)
	if user == nil {
		// An unauthenticated caller maps to no roles, not even through
		// wildcard user rules. Substitute a named stand-in so logging,
		// auditing and cache keys can read an identity off it; every
		// role-gated check still denies.
		user = entities.AnonymousUser()
	}
	view := model.Filter(roles)
	decision := newDecision(action, model.version)

	// Restore never resolves through the regular path: what it writes
	// is decided by snapshot contents, not the request's index list.
	if action == ActionRestore {
		d, err := e.evaluateRestore(ctx, model, user, view, action, req, decision)
		e.record(ScopeCluster, d, err)
		return d, err
	}

	resolved := e.resolve(ctx, model, user, action, req)

	if resolved.ContainsIndex(e.opts.ProtectedIndex) && IsProtectedDeniedAction(action) {
		e.logger.Info("write-shaped action against the protected configuration index denied",
			"user", user.Name, "action", action)
		e.audit.LogProtectedResourceAttempt(action, user)
		d := decision.deny([]string{action})
		e.record(ScopeIndex, d, nil)
		return d, nil
	}

	composite := model.dynamic.CompositeEnabled && IsCompositeAction(action)
	if IsClusterAction(action) || composite {
		// Caching is sound only while the outcome is a pure function of
		// (version, principal, action). An installed interceptor or a
		// possible index narrowing makes it depend on the request too.
		cacheable := !composite && e.interceptor == nil &&
			!(model.dynamic.DoNotFailOnForbidden && IsDNFOFAction(action))
		if cacheable {
			if cached, ok := e.cachedDecision(ctx, model, user, ScopeCluster, action); ok {
				return cached, nil
			}
		}
		if !view.ImpliesClusterPermission(action) {
			e.logDenied(model, user, action, resolved, roles)
			e.audit.LogDenied(action, user, resolved)
			d := decision.deny([]string{action})
			e.record(ScopeCluster, d, nil)
			if cacheable {
				e.storeDecision(ctx, model, user, ScopeCluster, action, d)
			}
			return d, nil
		}
		if !composite {
			return e.clusterGranted(ctx, model, user, view, roles, action, req, resolved, decision, cacheable)
		}
		// Composite envelope granted; per-item index checks follow.
	}

	if IsTenantAction(action) {
		if cached, ok := e.cachedDecision(ctx, model, user, ScopeTenant, action); ok {
			return cached, nil
		}
		var d *Decision
		if model.tenantIndex.HasTenantPermission(user, roles, action, model.dynamic) {
			d = decision.allow()
		} else {
			e.logDenied(model, user, action, resolved, roles)
			e.audit.LogDenied(action, user, resolved)
			d = decision.deny([]string{action})
		}
		e.record(ScopeTenant, d, nil)
		e.storeDecision(ctx, model, user, ScopeTenant, action, d)
		return d, nil
	}

	return e.evaluateIndexAction(ctx, model, user, view, roles, action, req, resolved, decision)
}

// clusterGranted finishes a granted, non-composite cluster action.
// The interceptor may still override the grant, and a read-shaped
// action that resolved to concrete indices is narrowed to the
// permitted subset when the forbidden-tolerant mode is on: a cluster
// grant alone must not widen access to indices the roles do not cover.
func (e *PrivilegeEvaluator) clusterGranted(ctx context.Context, model *Model,
	user *entities.User, view *RoleView, roles []string, action string, req Request,
	resolved *entities.Resolved, decision *Decision, cacheable bool) (*Decision, error) {

	if e.interceptor != nil {
		tenants := model.MapTenants(user, roles)
		switch e.interceptor.Intercept(ctx, user, action, req, resolved, tenants) {
		case InterceptorAllow:
			d := decision.allow()
			e.record(ScopeCluster, d, nil)
			return d, nil
		case InterceptorDeny:
			e.audit.LogDenied(action, user, resolved)
			d := decision.deny([]string{action})
			e.record(ScopeCluster, d, nil)
			return d, nil
		}
	}

	if model.dynamic.DoNotFailOnForbidden && IsDNFOFAction(action) &&
		!resolved.IsEmpty() && !resolved.IsAll() {
		required := []string{action}
		if !e.impliesTypePerm(ctx, model, view, resolved, user, required) &&
			!e.tryReduce(ctx, model, view, resolved, user, required, action, req) {
			e.logDenied(model, user, action, resolved, roles)
			e.audit.LogDenied(action, user, resolved)
			d := decision.deny(required)
			e.record(ScopeCluster, d, nil)
			return d, nil
		}
		d := decision.allow()
		e.record(ScopeCluster, d, nil)
		return d, nil
	}

	d := decision.allow()
	e.record(ScopeCluster, d, nil)
	if cacheable {
		e.storeDecision(ctx, model, user, ScopeCluster, action, d)
	}
	return d, nil
}

// evaluateIndexAction is the ordinary data-action path: interceptor,
// filter aggregation and consistency, permission matching, the
// narrowing rewrite, and the filtered-alias check.
func (e *PrivilegeEvaluator) evaluateIndexAction(ctx context.Context, model *Model,
	user *entities.User, view *RoleView, roles []string, action string, req Request,
	resolved *entities.Resolved, decision *Decision) (*Decision, error) {

	if e.interceptor != nil {
		tenants := model.MapTenants(user, roles)
		switch e.interceptor.Intercept(ctx, user, action, req, resolved, tenants) {
		case InterceptorAllow:
			d := decision.allow()
			e.record(ScopeIndex, d, nil)
			return d, nil
		case InterceptorDeny:
			e.audit.LogDenied(action, user, resolved)
			d := decision.deny([]string{action})
			e.record(ScopeIndex, d, nil)
			return d, nil
		}
	}

	dls, fls := view.AggregateFilters(ctx, resolved, user, e.resolver)
	if attached, ok := AttachedFiltersFrom(ctx); ok {
		if !filtersEqual(attached.DLS, dls) || !filtersEqual(attached.FLS, fls) {
			e.logger.Error("filter propagation mismatch within one request chain",
				"user", user.Name, "action", action)
			e.record(ScopeIndex, nil, ErrFilterMismatch)
			return nil, ErrFilterMismatch
		}
	}
	decision.DLSQueries = dls
	decision.FLSFields = fls

	// Nothing local to check (e.g. a purely remote search).
	if resolved.IsEmpty() {
		d := decision.allow()
		e.record(ScopeIndex, d, nil)
		return d, nil
	}

	required := requiredPermissions(action, req)

	granted := e.impliesTypePerm(ctx, model, view, resolved, user, required)
	if !granted && model.dynamic.DoNotFailOnForbidden && IsDNFOFAction(action) {
		granted = e.tryReduce(ctx, model, view, resolved, user, required, action, req)
	}
	if !granted {
		e.logDenied(model, user, action, resolved, roles)
		e.audit.LogDenied(action, user, resolved)
		d := decision.deny(required)
		e.record(ScopeIndex, d, nil)
		return d, nil
	}

	if e.guard.Check(ctx, resolved, action, model.dynamic.FilteredAliasMode, e.resolver) == AliasDeny {
		e.logDenied(model, user, action, resolved, roles)
		e.audit.LogDenied(action, user, resolved)
		d := decision.deny([]string{action})
		e.record(ScopeIndex, d, nil)
		return d, nil
	}

	d := decision.allow()
	e.record(ScopeIndex, d, nil)
	return d, nil
}

func (e *PrivilegeEvaluator) impliesTypePerm(ctx context.Context, model *Model, view *RoleView,
	resolved *entities.Resolved, user *entities.User, required []string) bool {
	if model.dynamic.MultiRolespanEnabled {
		return view.ImpliesTypePermGlobal(ctx, resolved, user, required, e.resolver)
	}
	return view.ImpliesTypePerm(ctx, resolved, user, required, e.resolver)
}

// tryReduce narrows the request to the permitted index subset. It only
// succeeds when the request can actually be rewritten; a non-empty
// subset (or, when allowed, an explicitly empty one for search shaped
// actions) replaces the original index list.
func (e *PrivilegeEvaluator) tryReduce(ctx context.Context, model *Model, view *RoleView,
	resolved *entities.Resolved, user *entities.User, required []string, action string, req Request) bool {
	replaceable, ok := req.(ReplaceableRequest)
	if !ok {
		return false
	}

	reduced := view.Reduce(ctx, resolved, user, required, e.resolver, model.dynamic.MultiRolespanEnabled)
	if len(reduced) == 0 {
		if !model.dynamic.AllowEmptyReduce || !IsSearchAction(action) {
			return false
		}
	}

	replaceable.ReplaceIndices(reduced)
	// The narrowed request must not serve data cached or realtime-read
	// for the full index set.
	if c, ok := req.(CacheableRequest); ok {
		c.DisableRequestCache()
	}
	if r, ok := req.(RealtimeRequest); ok {
		r.DisableRealtime()
	}
	e.logger.Info("request narrowed to permitted indices",
		"user", user.Name, "action", action, "indices", reduced)
	return true
}

// resolve runs resource resolution, falling back to the maximally
// strict wildcard when the resolver fails. Availability of the
// decision wins over precision; the fallback can only ever deny more.
func (e *PrivilegeEvaluator) resolve(ctx context.Context, model *Model,
	user *entities.User, action string, req Request) *entities.Resolved {
	if e.resolver == nil {
		return entities.ResolvedAll()
	}
	resolved, err := e.resolver.Resolve(ctx, user, action, req)
	if err != nil || resolved == nil {
		e.logger.Warn("resource resolution failed, treating request as _all",
			"action", action, "error", err)
		return entities.ResolvedAll()
	}
	return resolved
}

// requiredPermissions is the full conjunctive permission set of one
// request: the action itself plus permissions synthesized from the
// request body (mixed bulk opcodes, alias remove_index actions,
// search-shards lookups, index creation with aliases).
func requiredPermissions(action string, req Request) []string {
	set := map[string]struct{}{action: {}}

	if bulk, ok := req.(BulkRequest); ok {
		for _, item := range bulk.Items() {
			switch item.Op() {
			case BulkOpIndex, BulkOpCreate:
				set[ActionWriteIndex] = struct{}{}
			case BulkOpUpdate:
				set[ActionWriteUpdate] = struct{}{}
			case BulkOpDelete:
				set[ActionWriteDelete] = struct{}{}
			}
		}
	}

	if aliases, ok := req.(AliasesRequest); ok {
		for _, aa := range aliases.AliasActions() {
			if aa.Type == "remove_index" {
				set[ActionDeleteIndex] = struct{}{}
			}
		}
	}

	if action == ActionSearchShards {
		set[ActionSearch] = struct{}{}
	}

	if create, ok := req.(CreateIndexRequest); ok && len(create.CreationAliases()) > 0 {
		set[ActionManageAliases] = struct{}{}
	}

	result := make([]string, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

func (e *PrivilegeEvaluator) logDenied(model *Model, user *entities.User, action string,
	resolved *entities.Resolved, roles []string) {
	var indices []string
	if resolved != nil {
		indices = resolved.Indices
	}
	e.logger.Info("access denied",
		"user", user.Name,
		"action", action,
		"indices", indices,
		"roles", roles,
		"config_version", model.version)
}

func (e *PrivilegeEvaluator) record(scope string, d *Decision, err error) {
	outcome := "error"
	if err == nil && d != nil {
		if d.Allowed {
			outcome = "allow"
		} else {
			outcome = "deny"
		}
	}
	e.recorder.RecordDecision(scope, outcome)
}

// Cluster and tenant decisions carry no filters and rewrite nothing,
// so they are pure functions of (snapshot version, principal, action)
// and safe to cache. The cluster path opts out when an interceptor or
// the narrowing rewrite may inspect the request; index decisions are
// never cached.
func (e *PrivilegeEvaluator) decisionCacheKey(model *Model, user *entities.User, scope, action string) string {
	backendRoles := append([]string{}, user.BackendRoles...)
	sort.Strings(backendRoles)
	var caller string
	if user.Caller != nil {
		caller = user.Caller.Address + "/" + user.Caller.Hostname
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		model.version, scope, user.Name, user.RequestedTenant,
		strings.Join(backendRoles, ","), caller, action,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

func (e *PrivilegeEvaluator) cachedDecision(ctx context.Context, model *Model,
	user *entities.User, scope, action string) (*Decision, bool) {
	if e.decisions == nil {
		return nil, false
	}
	value, ok := e.decisions.Get(ctx, e.decisionCacheKey(model, user, scope, action))
	if !ok {
		return nil, false
	}
	d, ok := value.(*Decision)
	if !ok {
		return nil, false
	}
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	e.recorder.RecordDecision(scope, outcome)
	return d, true
}

func (e *PrivilegeEvaluator) storeDecision(ctx context.Context, model *Model,
	user *entities.User, scope, action string, d *Decision) {
	if e.decisions == nil {
		return
	}
	_ = e.decisions.Set(ctx, e.decisionCacheKey(model, user, scope, action), d, e.opts.DecisionCacheTTL)
}
