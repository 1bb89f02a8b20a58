package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestInitConfig(t *testing.T) {
	// Save original working directory
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{
			name:    "default dev environment",
			env:     "",
			wantErr: false,
		},
		{
			name:    "explicit dev environment",
			env:     "dev",
			wantErr: false,
		},
		{
			name:    "test environment",
			env:     "test",
			wantErr: false,
		},
		{
			name:    "prod environment",
			env:     "prod",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper for each test
			viper.Reset()

			err := InitConfig(tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("InitConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			// Verify default values are set
			if !tt.wantErr {
				if viper.GetString("CONFIG_DIR") != "config" {
					t.Errorf("InitConfig() CONFIG_DIR = %v, want config", viper.GetString("CONFIG_DIR"))
				}
				if viper.GetString("PROTECTED_INDEX") != ".palisade" {
					t.Errorf("InitConfig() PROTECTED_INDEX = %v, want .palisade", viper.GetString("PROTECTED_INDEX"))
				}
				if viper.GetInt("TENANT_BUILD_WORKERS") != 10 {
					t.Errorf("InitConfig() TENANT_BUILD_WORKERS = %v, want 10", viper.GetInt("TENANT_BUILD_WORKERS"))
				}
				if viper.GetInt("TENANT_BUILD_TIMEOUT_SECONDS") != 30 {
					t.Errorf("InitConfig() TENANT_BUILD_TIMEOUT_SECONDS = %v, want 30", viper.GetInt("TENANT_BUILD_TIMEOUT_SECONDS"))
				}
				if !viper.GetBool("ENABLE_SNAPSHOT_RESTORE_PRIVILEGE") {
					t.Errorf("InitConfig() ENABLE_SNAPSHOT_RESTORE_PRIVILEGE = false, want true")
				}
				if !viper.GetBool("CHECK_RESTORE_WRITE_PRIVILEGES") {
					t.Errorf("InitConfig() CHECK_RESTORE_WRITE_PRIVILEGES = false, want true")
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func()
		cleanupEnv  func()
		wantErr     bool
		wantErrMsg  string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "successful load with defaults",
			setupEnv: func() {
				viper.Reset()
				viper.SetDefault("CONFIG_DIR", "config")
				viper.SetDefault("PROTECTED_INDEX", ".palisade")
				viper.SetDefault("ENABLE_SNAPSHOT_RESTORE_PRIVILEGE", true)
				viper.SetDefault("CHECK_RESTORE_WRITE_PRIVILEGES", true)
				viper.SetDefault("TENANT_BUILD_WORKERS", 10)
				viper.SetDefault("TENANT_BUILD_TIMEOUT_SECONDS", 30)
				viper.SetDefault("CACHE_ENABLED", true)
				viper.SetDefault("CACHE_TTL_MINUTES", 5)
				viper.SetDefault("METRICS_PORT", 9090)
			},
			cleanupEnv: func() {
				viper.Reset()
			},
			wantErr: false,
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Engine.ConfigDir != "config" {
					t.Errorf("Load() Engine.ConfigDir = %v, want config", cfg.Engine.ConfigDir)
				}
				if cfg.Engine.ProtectedIndex != ".palisade" {
					t.Errorf("Load() Engine.ProtectedIndex = %v, want .palisade", cfg.Engine.ProtectedIndex)
				}
				if !cfg.Engine.EnableSnapshotRestorePrivilege {
					t.Errorf("Load() Engine.EnableSnapshotRestorePrivilege = false, want true")
				}
				if cfg.Tenant.BuildWorkers != 10 {
					t.Errorf("Load() Tenant.BuildWorkers = %v, want 10", cfg.Tenant.BuildWorkers)
				}
				if cfg.Tenant.BuildTimeout != 30*time.Second {
					t.Errorf("Load() Tenant.BuildTimeout = %v, want 30s", cfg.Tenant.BuildTimeout)
				}
				if !cfg.Cache.Enabled {
					t.Errorf("Load() Cache.Enabled = false, want true")
				}
				if cfg.Metrics.Port != 9090 {
					t.Errorf("Load() Metrics.Port = %v, want 9090", cfg.Metrics.Port)
				}
			},
		},
		{
			name: "missing config dir",
			setupEnv: func() {
				viper.Reset()
			},
			cleanupEnv: func() {
				viper.Reset()
			},
			wantErr:    true,
			wantErrMsg: "CONFIG_DIR is required (set via environment variable or .env file)",
		},
		{
			name: "custom engine config",
			setupEnv: func() {
				viper.Reset()
				viper.Set("CONFIG_DIR", "/etc/palisade")
				viper.Set("PROTECTED_INDEX", ".authz-config")
				viper.Set("TENANT_BUILD_WORKERS", 4)
				viper.SetDefault("TENANT_BUILD_TIMEOUT_SECONDS", 30)
			},
			cleanupEnv: func() {
				viper.Reset()
			},
			wantErr: false,
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Engine.ConfigDir != "/etc/palisade" {
					t.Errorf("Load() Engine.ConfigDir = %v, want /etc/palisade", cfg.Engine.ConfigDir)
				}
				if cfg.Engine.ProtectedIndex != ".authz-config" {
					t.Errorf("Load() Engine.ProtectedIndex = %v, want .authz-config", cfg.Engine.ProtectedIndex)
				}
				if cfg.Tenant.BuildWorkers != 4 {
					t.Errorf("Load() Tenant.BuildWorkers = %v, want 4", cfg.Tenant.BuildWorkers)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			defer tt.cleanupEnv()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Load() error = %v, want %v", err.Error(), tt.wantErrMsg)
				}
				return
			}

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	// Save original working directory
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	// This test assumes we're running from within the project
	root, err := findProjectRoot()
	if err != nil {
		t.Errorf("findProjectRoot() error = %v, want nil", err)
		return
	}

	// Verify go.mod exists in the returned root
	goModPath := root + "/go.mod"
	if _, err := os.Stat(goModPath); os.IsNotExist(err) {
		t.Errorf("findProjectRoot() returned %v, but go.mod does not exist at %v", root, goModPath)
	}
}
