package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8090
  allowed_origins:
    - http://localhost:3000
auth:
  jwt_secret: test-secret
script:
  url: https://script.example.com/exec
easyslip:
  api_key: abc-123
payments:
  max_slip_age_hours: 48
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://script.example.com/exec", cfg.Script.URL)
	assert.Equal(t, "abc-123", cfg.EasySlip.APIKey)
	assert.Equal(t, 48, cfg.Payments.MaxSlipAgeHours)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Auth.TokenTTLDays)
	assert.Equal(t, 24, cfg.Payments.MaxSlipAgeHours)
	assert.Equal(t, "https://developer.easyslip.com", cfg.EasySlip.BaseURL)
	assert.Equal(t, BackendScript, cfg.Storage.Backend)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_SLIP_KEY", "from-env")

	path := writeConfig(t, `
easyslip:
  api_key: ${TEST_SLIP_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.EasySlip.APIKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := LoadFromEnv()

	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid script backend",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "jwt_secret",
		},
		{
			name:    "script backend without url",
			mutate:  func(c *Config) { c.Script.URL = "" },
			wantErr: "script.url",
		},
		{
			name: "sqlite backend without path",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendSQLite
				c.Storage.DatabasePath = ""
			},
			wantErr: "database_path",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "mongo" },
			wantErr: "unknown storage.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Auth:    AuthConfig{JWTSecret: "s"},
				Script:  ScriptConfig{URL: "https://script.example.com"},
				Storage: StorageConfig{Backend: BackendScript, DatabasePath: "x.db"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
