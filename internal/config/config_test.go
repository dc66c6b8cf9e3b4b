package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, LockoutStoreMemory, cfg.Auth.LockoutStore)
	assert.Equal(t, 32, cfg.Auth.LockoutShards)
	assert.Equal(t, 5*time.Minute, cfg.Auth.LockoutSweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.Auth.LockoutIdleTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, StorageBackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:5500")
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("LOCKOUT_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOCKOUT_SWEEP_INTERVAL", "1m")
	t.Setenv("LOCKOUT_IDLE_TTL", "0s")
	t.Setenv("ALLOWED_ORIGINS", "https://moverap.app, https://www.moverap.app")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, LockoutStoreRedis, cfg.Auth.LockoutStore)
	assert.Equal(t, time.Minute, cfg.Auth.LockoutSweepInterval)
	assert.Equal(t, time.Duration(0), cfg.Auth.LockoutIdleTTL)
	assert.Equal(t, []string{"https://moverap.app", "https://www.moverap.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_IDLE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing db password",
			env:     map[string]string{"DB_PASSWORD": ""},
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "unknown lockout store",
			env:     map[string]string{"LOCKOUT_STORE": "etcd"},
			wantErr: "LOCKOUT_STORE",
		},
		{
			name:    "negative idle ttl",
			env:     map[string]string{"LOCKOUT_IDLE_TTL": "-1h"},
			wantErr: "LOCKOUT_IDLE_TTL",
		},
		{
			name:    "redis without address",
			env:     map[string]string{"LOCKOUT_STORE": "redis"},
			wantErr: "REDIS_ADDR",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "s3"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "unknown storage backend",
			env:     map[string]string{"STORAGE_BACKEND": "ftp"},
			wantErr: "STORAGE_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseAllowedOrigins_ProductionDefaultsEmpty(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")
	assert.Empty(t, parseAllowedOrigins("production"))
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", c.DSN())
}
