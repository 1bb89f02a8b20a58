package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/internal/entities"
	"github.com/palisadehq/palisade/internal/infrastructure/config"
	"github.com/palisadehq/palisade/internal/infrastructure/metrics"
	"github.com/palisadehq/palisade/internal/repositories/localfile"
	"github.com/palisadehq/palisade/internal/services"
	"github.com/palisadehq/palisade/internal/services/privileges"
	"github.com/palisadehq/palisade/pkg/cache"
	"github.com/palisadehq/palisade/pkg/cache/memorycache"
)

const defaultEnv = "dev"

var (
	flagConfigDir string

	flagUser         string
	flagBackendRoles []string
	flagTenant       string
	flagCallerAddr   string

	flagAction  string
	flagIndices []string
	flagTypes   []string
)

func main() {
	root := &cobra.Command{
		Use:   "palisade",
		Short: "Privilege evaluation engine for multi-tenant document stores",
		Long: "Palisade evaluates whether a user may execute an action against\n" +
			"a set of indices, given role, role-mapping, action-group and tenant\n" +
			"configuration loaded from a directory of YAML files.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"directory holding roles.yml, roles_mapping.yml, action_groups.yml, tenants.yml and config.yml")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRolesCmd())
	root.AddCommand(newTenantsCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig initializes viper and returns the application config,
// honoring the --config-dir override.
func loadConfig() (*config.Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}
	if err := config.InitConfig(env); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagConfigDir != "" {
		cfg.Engine.ConfigDir = flagConfigDir
	}
	return cfg, nil
}

// engine bundles the wired components behind a loaded configuration.
type engine struct {
	evaluator *privileges.PrivilegeEvaluator
	snapshots *services.SnapshotService
	exporter  *metrics.PrometheusExporter
}

// buildEngine loads the security configuration from disk and returns
// the wired evaluator, snapshot service and metrics exporter.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector)

	var decisionCache cache.Cache
	if cfg.Cache.Enabled {
		c, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxSizeBytes,
			DefaultTTL:    time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create decision cache: %w", err)
		}
		decisionCache = c
		collector.SetCache(c)
	}

	evaluator := privileges.NewPrivilegeEvaluator(
		literalResolver{},
		nil,
		privileges.NopAuditLogger{},
		nil,
		decisionCache,
		exporter,
		logger,
		privileges.Options{
			ProtectedIndex:                 cfg.Engine.ProtectedIndex,
			EnableSnapshotRestorePrivilege: cfg.Engine.EnableSnapshotRestorePrivilege,
			CheckRestoreWritePrivileges:    cfg.Engine.CheckRestoreWritePrivileges,
		},
	)

	repo := localfile.NewRepository(cfg.Engine.ConfigDir)
	snapshots := services.NewSnapshotService(repo, cfg.Tenant.BuildWorkers,
		cfg.Tenant.BuildTimeout, exporter, logger)
	snapshots.Subscribe(evaluator)

	if err := snapshots.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load security configuration: %w", err)
	}
	return &engine{evaluator: evaluator, snapshots: snapshots, exporter: exporter}, nil
}

// userFromFlags builds the user under evaluation from command flags.
func userFromFlags() *entities.User {
	user := &entities.User{
		Name:            flagUser,
		BackendRoles:    flagBackendRoles,
		RequestedTenant: flagTenant,
	}
	if flagCallerAddr != "" {
		user.Caller = &entities.NetworkCaller{Address: flagCallerAddr}
	}
	return user
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the security configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo := localfile.NewRepository(cfg.Engine.ConfigDir)
			snapshot, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			// Building the model catches what parsing alone cannot:
			// action group cycles, tenant table construction.
			if _, err := privileges.BuildModel(cmd.Context(), snapshot,
				cfg.Tenant.BuildWorkers, cfg.Tenant.BuildTimeout); err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			fmt.Printf("Configuration %s is valid\n", snapshot.Version)
			fmt.Printf("  roles:         %d\n", len(snapshot.Roles))
			fmt.Printf("  role mappings: %d\n", len(snapshot.RoleMappings))
			fmt.Printf("  action groups: %d\n", len(snapshot.ActionGroups))
			fmt.Printf("  tenants:       %d\n", len(snapshot.Tenants))
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a single privilege request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagUser == "" || flagAction == "" {
				return fmt.Errorf("--user and --action are required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			req := &checkRequest{indices: flagIndices, types: flagTypes}
			decision, err := eng.evaluator.Evaluate(cmd.Context(), userFromFlags(), flagAction, req)
			if err != nil {
				return err
			}

			if decision.Allowed {
				fmt.Println("ALLOWED")
			} else {
				fmt.Println("DENIED")
				for _, missing := range decision.MissingPrivileges {
					fmt.Printf("  missing: %s\n", missing)
				}
			}
			printFilters("dls", decision.DLSQueries)
			printFilters("fls", decision.FLSFields)
			fmt.Printf("  config version: %s\n", decision.ConfigVersion)
			if !decision.Allowed {
				os.Exit(2)
			}
			return nil
		},
	}
	addUserFlags(cmd)
	cmd.Flags().StringVar(&flagAction, "action", "", "action name, e.g. indices:data/read/search")
	cmd.Flags().StringSliceVar(&flagIndices, "index", nil, "requested index (repeatable)")
	cmd.Flags().StringSliceVar(&flagTypes, "type", nil, "requested type (repeatable)")
	return cmd
}

func newRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Show the roles mapped to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagUser == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			roles := eng.evaluator.MapRoles(userFromFlags())
			fmt.Printf("Roles for %s (config %s):\n", flagUser, eng.snapshots.CurrentVersion())
			for _, role := range roles {
				fmt.Printf("  %s\n", role)
			}
			if len(roles) == 0 {
				fmt.Println("  (none)")
			}
			return nil
		},
	}
	addUserFlags(cmd)
	return cmd
}

func newTenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Show the tenants accessible to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagUser == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			user := userFromFlags()
			tenants := eng.evaluator.MapTenants(user, eng.evaluator.MapRoles(user))
			names := make([]string, 0, len(tenants))
			for name := range tenants {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Printf("Tenants for %s (config %s):\n", flagUser, eng.snapshots.CurrentVersion())
			for _, name := range names {
				access := "RO"
				if tenants[name] {
					access = "RW"
				}
				fmt.Printf("  %s (%s)\n", name, access)
			}
			return nil
		},
	}
	addUserFlags(cmd)
	return cmd
}

func newServeCmd() *cobra.Command {
	var reloadInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics and reload configuration periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log.Printf("Loaded configuration %s from %s",
				eng.snapshots.CurrentVersion(), cfg.Engine.ConfigDir)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
				Handler: mux,
			}
			serverErrors := make(chan error, 1)
			go func() {
				log.Printf("Metrics server listening on :%d", cfg.Metrics.Port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serverErrors <- fmt.Errorf("metrics server error: %w", err)
				}
			}()

			ticker := time.NewTicker(reloadInterval)
			defer ticker.Stop()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

			for {
				select {
				case err := <-serverErrors:
					return err
				case sig := <-sigChan:
					log.Printf("Received signal: %v, shutting down", sig)
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := server.Shutdown(shutdownCtx); err != nil {
						log.Printf("Error shutting down metrics server: %v", err)
					}
					return nil
				case <-ticker.C:
					// A failed reload keeps the previous model; only log it.
					if err := eng.snapshots.Reload(cmd.Context()); err != nil {
						log.Printf("Configuration reload failed: %v", err)
					}
					eng.exporter.Update()
				}
			}
		},
	}
	cmd.Flags().DurationVar(&reloadInterval, "reload-interval", 30*time.Second,
		"how often to re-read the configuration directory")
	return cmd
}

func addUserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagUser, "user", "", "user name")
	cmd.Flags().StringSliceVar(&flagBackendRoles, "backend-role", nil, "backend role (repeatable)")
	cmd.Flags().StringVar(&flagTenant, "tenant", "", "requested tenant")
	cmd.Flags().StringVar(&flagCallerAddr, "caller", "", "caller network address")
}

func printFilters(label string, filters map[string][]string) {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %s[%s]: %s\n", label, key, strings.Join(filters[key], " | "))
	}
}

// checkRequest is the request shape behind the check command: literal
// index and type names, narrowable for the forbidden-tolerant path.
type checkRequest struct {
	indices []string
	types   []string
}

func (r *checkRequest) RequestedIndices() []string { return r.indices }
func (r *checkRequest) RequestedTypes() []string   { return r.types }

func (r *checkRequest) ReplaceIndices(indices []string) {
	log.Printf("request narrowed to permitted indices: %s", strings.Join(indices, ","))
	r.indices = indices
}

// literalResolver takes requested names at face value. The CLI has no
// live cluster to expand wildcards or aliases against, so names pass
// through unexpanded and every name is assumed to exist.
type literalResolver struct{}

func (literalResolver) Resolve(ctx context.Context, user *entities.User, action string, req privileges.Request) (*entities.Resolved, error) {
	rr, ok := req.(privileges.ResourceRequest)
	if !ok || len(rr.RequestedIndices()) == 0 {
		return entities.ResolvedAll(), nil
	}
	return entities.NewResolved(rr.RequestedIndices(), rr.RequestedTypes()), nil
}

func (literalResolver) ResolvePattern(ctx context.Context, name string) ([]string, error) {
	return []string{name}, nil
}

func (literalResolver) HasIndexOrAlias(ctx context.Context, name string) bool { return true }

func (literalResolver) FilteredAliases(ctx context.Context, resolved *entities.Resolved) map[string][]string {
	return nil
}
