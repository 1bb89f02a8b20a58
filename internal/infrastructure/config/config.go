package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Engine  EngineConfig
	Tenant  TenantConfig
	Cache   CacheConfig
	Metrics MetricsConfig
}

// EngineConfig represents privilege engine configuration
type EngineConfig struct {
	ConfigDir                      string // Directory holding the YAML authorization files
	ProtectedIndex                 string // The engine's own configuration index
	EnableSnapshotRestorePrivilege bool   // Allow snapshot restores at all
	CheckRestoreWritePrivileges    bool   // Gate the write check over renamed restore targets
}

// TenantConfig represents tenant table rebuild configuration
type TenantConfig struct {
	BuildWorkers int           // Worker pool size for the per-role tenant extraction
	BuildTimeout time.Duration // Join timeout; a rebuild exceeding it is aborted
}

// CacheConfig represents decision cache configuration
type CacheConfig struct {
	Enabled      bool
	MaxSizeBytes int64 // Maximum memory usage in bytes (e.g., 104857600 = 100MB)
	Metrics      bool
	TTLMinutes   int // Time-to-live for cached decisions in minutes
}

// MetricsConfig represents metrics endpoint configuration
type MetricsConfig struct {
	Port int // Port for Prometheus metrics HTTP server
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	// Find project root
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot) // Project root

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("CONFIG_DIR", "config")
	viper.SetDefault("PROTECTED_INDEX", ".palisade")
	viper.SetDefault("ENABLE_SNAPSHOT_RESTORE_PRIVILEGE", true)
	viper.SetDefault("CHECK_RESTORE_WRITE_PRIVILEGES", true)
	viper.SetDefault("METRICS_PORT", 9090)

	// Tenant rebuild defaults
	viper.SetDefault("TENANT_BUILD_WORKERS", 10)
	viper.SetDefault("TENANT_BUILD_TIMEOUT_SECONDS", 30)

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_MAX_MEMORY_BYTES", 100*1024*1024) // 100MB
	viper.SetDefault("CACHE_METRICS", true)
	viper.SetDefault("CACHE_TTL_MINUTES", 5) // 5 minutes TTL

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		return nil, fmt.Errorf("CONFIG_DIR is required (set via environment variable or .env file)")
	}

	config := &Config{
		Engine: EngineConfig{
			ConfigDir:                      configDir,
			ProtectedIndex:                 viper.GetString("PROTECTED_INDEX"),
			EnableSnapshotRestorePrivilege: viper.GetBool("ENABLE_SNAPSHOT_RESTORE_PRIVILEGE"),
			CheckRestoreWritePrivileges:    viper.GetBool("CHECK_RESTORE_WRITE_PRIVILEGES"),
		},
		Tenant: TenantConfig{
			BuildWorkers: viper.GetInt("TENANT_BUILD_WORKERS"),
			BuildTimeout: time.Duration(viper.GetInt("TENANT_BUILD_TIMEOUT_SECONDS")) * time.Second,
		},
		Cache: CacheConfig{
			Enabled:      viper.GetBool("CACHE_ENABLED"),
			MaxSizeBytes: viper.GetInt64("CACHE_MAX_MEMORY_BYTES"),
			Metrics:      viper.GetBool("CACHE_METRICS"),
			TTLMinutes:   viper.GetInt("CACHE_TTL_MINUTES"),
		},
		Metrics: MetricsConfig{
			Port: viper.GetInt("METRICS_PORT"),
		},
	}

	return config, nil
}
