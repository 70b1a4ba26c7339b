package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"ORGSYNC_LISTEN_ADDR",
	"ORGSYNC_DB_PATH",
	"ORGSYNC_ORG_CONFIG",
	"ORGSYNC_WEBHOOK_SECRET",
	"ORGSYNC_GITHUB_API_URL",
	"ORGSYNC_SOURCE_TOKEN",
	"ORGSYNC_SOURCE_CLIENT_ID",
	"ORGSYNC_SOURCE_PRIVATE_KEY_PATH",
	"ORGSYNC_SOURCE_INSTALLATION_ID",
	"ORGSYNC_JWT_TTL",
	"ORGSYNC_JOB_TIMEOUT",
	"ORGSYNC_MAX_PARALLEL_ORGS",
	"ORGSYNC_RETRY_ATTEMPTS",
	"ORGSYNC_COMMITTER_NAME",
	"ORGSYNC_COMMITTER_EMAIL",
	"ORGSYNC_LOG_LEVEL",
	"ORGSYNC_LOG_FORMAT",
	"GITHUB_SAFE_SETTINGS_PATH",
	"GITHUB_SAFE_SETTINGS_DEST_PATH",
	"GITHUB_SAFE_SETTINGS_DEST_BASE_BRANCH",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment. t.Cleanup restores them.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "orgsync.db", cfg.DBPath)
	assert.Equal(t, "org-info.yml", cfg.OrgConfigPath)
	assert.Equal(t, "https://api.github.com/", cfg.GitHubAPIURL)
	assert.Equal(t, ".github/safe-settings/organizations", cfg.SourceBasePath)
	assert.Empty(t, cfg.DestPathOverride)
	assert.Empty(t, cfg.BaseBranchOverride)
	assert.Equal(t, 9*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 4, cfg.MaxParallelOrgs)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "Safe Settings Sync", cfg.CommitterName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.HasSourceCredentials())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("ORGSYNC_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("ORGSYNC_DB_PATH", "/tmp/test.db")
	t.Setenv("ORGSYNC_SOURCE_CLIENT_ID", "Iv23lisrc")
	t.Setenv("ORGSYNC_SOURCE_PRIVATE_KEY_PATH", "/keys/src.pem")
	t.Setenv("ORGSYNC_SOURCE_INSTALLATION_ID", "12345")
	t.Setenv("ORGSYNC_JWT_TTL", "5m")
	t.Setenv("ORGSYNC_JOB_TIMEOUT", "0")
	t.Setenv("ORGSYNC_MAX_PARALLEL_ORGS", "8")
	t.Setenv("ORGSYNC_LOG_LEVEL", "debug")
	t.Setenv("ORGSYNC_LOG_FORMAT", "JSON")
	t.Setenv("GITHUB_SAFE_SETTINGS_PATH", "orgs")
	t.Setenv("GITHUB_SAFE_SETTINGS_DEST_PATH", "settings")
	t.Setenv("GITHUB_SAFE_SETTINGS_DEST_BASE_BRANCH", "develop")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.True(t, cfg.HasSourceApp())
	assert.Equal(t, int64(12345), cfg.SourceInstallationID)
	assert.Equal(t, 5*time.Minute, cfg.JWTTTL)
	assert.Equal(t, time.Duration(0), cfg.JobTimeout)
	assert.Equal(t, 8, cfg.MaxParallelOrgs)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "orgs", cfg.SourceBasePath)
	assert.Equal(t, "settings", cfg.DestPathOverride)
	assert.Equal(t, "develop", cfg.BaseBranchOverride)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"ttl over ten minutes", "ORGSYNC_JWT_TTL", "11m"},
		{"ttl not a duration", "ORGSYNC_JWT_TTL", "soon"},
		{"negative job timeout", "ORGSYNC_JOB_TIMEOUT", "-1s"},
		{"zero parallelism", "ORGSYNC_MAX_PARALLEL_ORGS", "0"},
		{"parallelism not a number", "ORGSYNC_MAX_PARALLEL_ORGS", "many"},
		{"zero attempts", "ORGSYNC_RETRY_ATTEMPTS", "0"},
		{"bad installation id", "ORGSYNC_SOURCE_INSTALLATION_ID", "abc"},
		{"bad log level", "ORGSYNC_LOG_LEVEL", "loud"},
		{"bad log format", "ORGSYNC_LOG_FORMAT", "xml"},
		{"client id without key", "ORGSYNC_SOURCE_CLIENT_ID", "Iv23lisrc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.val)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_TTLAtMaximum(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("ORGSYNC_JWT_TTL", "10m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, MaxJWTTTL, cfg.JWTTTL)
}

func TestLoad_StaticSourceToken(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("ORGSYNC_SOURCE_TOKEN", "ghp_source")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.HasSourceCredentials())
	assert.False(t, cfg.HasSourceApp())
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: slog.LevelInfo, LogFormat: "json"}

	logger := cfg.NewLogger(&buf)
	logger.Debug("hidden")
	logger.Info("shown", "org", "acme")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"org":"acme"`)
}
