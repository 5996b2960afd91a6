package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "BASE_URL", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"SESSION_SECRET", "SESSION_MAX_AGE", "PROJECT_STORE_DSN", "PROJECT_STORE_PATH",
		"GITHUB_CACHE_TTL", "GITHUB_CACHE_SIZE", "SNAPSHOT_S3_ENDPOINT", "SNAPSHOT_S3_ACCESS_KEY",
		"SNAPSHOT_S3_SECRET_KEY", "SNAPSHOT_S3_USE_SSL", "MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
		"GITHUB_OAUTH_SCOPES", "SNAPSHOT_CACHE_DIR", "SNAPSHOT_CACHE_MAX_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_LocalDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv(":8081")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.False(t, cfg.Session.Secure)
	assert.NotEmpty(t, cfg.Session.Secret)
	assert.Equal(t, "tmp/imported_projects.json", cfg.Projects.Path)
	assert.Equal(t, 30*time.Second, cfg.GitHub.CacheTTL)
	assert.Equal(t, 512, cfg.GitHub.CacheSize)
	assert.Equal(t, []string{"repo", "read:user"}, cfg.GitHub.Scopes)
	assert.False(t, cfg.Snapshot.CanUseS3())
}

func TestFromEnv_ProductionRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := FromEnv(":8081")
	require.Error(t, err)

	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	_, err = FromEnv(":8081")
	require.Error(t, err, "session secret is still missing")

	t.Setenv("SESSION_SECRET", "s3cr3t")
	cfg, err := FromEnv(":8081")
	require.NoError(t, err)
	assert.True(t, cfg.Session.Secure)
	assert.True(t, cfg.IsProduction())
}

func TestFromEnv_PortAndSnapshot(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://app.example.com/")
	t.Setenv("SNAPSHOT_S3_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ROOT_USER", "user")
	t.Setenv("MINIO_ROOT_PASSWORD", "pass")
	t.Setenv("GITHUB_CACHE_TTL", "bogus")
	t.Setenv("SNAPSHOT_CACHE_DIR", "/var/cache/ghimport")

	cfg, err := FromEnv(":8081")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, "https://app.example.com", cfg.BaseURL)
	assert.True(t, cfg.Snapshot.CanUseS3())
	assert.False(t, cfg.Snapshot.UseSSL)
	assert.Equal(t, 30*time.Second, cfg.GitHub.CacheTTL)
	assert.Equal(t, "/var/cache/ghimport", cfg.Snapshot.CacheDir)
	assert.Equal(t, int64(256<<20), cfg.Snapshot.CacheMaxBytes)
}
