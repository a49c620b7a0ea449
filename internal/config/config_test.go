package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ENVIRONMENT", "STORE_BACKEND", "STORE_URL", "STORE_TIMEOUT", "JWT_SECRET",
	"RATE_LIMIT_LOGIN", "TRUSTED_PROXY_CIDRS", "RECONCILE_INTERVAL", "TRACING_ENABLED",
	"SERVER_PORT",
}

// clearEnv empties every variable the tests touch; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.Store.Backend)
	require.Equal(t, 5*time.Second, cfg.Store.Timeout)
	require.Equal(t, 5, cfg.RateLimit.LoginPer15Minutes)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "RTDB")
	t.Setenv("STORE_URL", "https://charity.example.firebasedatabase.app")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 172.16.0.0/12 ,")
	t.Setenv("RECONCILE_INTERVAL", "15m")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendRTDB, cfg.Store.Backend)
	require.Equal(t, 2*time.Second, cfg.Store.Timeout)
	require.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, cfg.RateLimit.TrustedProxyCIDRs)
	require.Equal(t, 15*time.Minute, cfg.Reconcile.Interval)
	require.True(t, cfg.Tracing.Enabled)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("STORE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Store.Timeout)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "remote backend without url",
			env:     map[string]string{"STORE_BACKEND": "postgres"},
			wantErr: "STORE_URL",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORE_BACKEND": "mongo"},
			wantErr: "unsupported STORE_BACKEND",
		},
		{
			name:    "production without secret",
			env:     map[string]string{"ENVIRONMENT": "production"},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "production with short secret",
			env:     map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "short"},
			wantErr: "at least 32 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadFile_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
store:
  backend: redis
  url: redis://localhost:6379/0
  timeout: 3s
rate_limit:
  login_per_15_minutes: 10
reconcile:
  interval: 1h
`), 0o600))
	t.Setenv("RATE_LIMIT_LOGIN", "2")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, BackendRedis, cfg.Store.Backend)
	require.Equal(t, 3*time.Second, cfg.Store.Timeout)
	require.Equal(t, time.Hour, cfg.Reconcile.Interval)
	require.Equal(t, 2, cfg.RateLimit.LoginPer15Minutes)
	require.Equal(t, "charity:", cfg.Store.Prefix, "unset keys keep defaults")
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = LoadFile(path)
	require.ErrorContains(t, err, "parse config file")
}
