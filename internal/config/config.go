// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxJWTTTL is the longest app assertion lifetime GitHub accepts.
const MaxJWTTTL = 10 * time.Minute

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	OrgConfigPath string
	WebhookSecret string
	GitHubAPIURL  string

	SourceToken          string
	SourceClientID       string
	SourcePrivateKeyPath string
	SourceInstallationID int64

	SourceBasePath     string
	DestPathOverride   string
	BaseBranchOverride string

	JWTTTL          time.Duration
	JobTimeout      time.Duration
	MaxParallelOrgs int
	RetryAttempts   int

	CommitterName  string
	CommitterEmail string

	LogLevel  slog.Level
	LogFormat string
}

// HasSourceApp reports whether source reads authenticate as a GitHub App.
func (c *Config) HasSourceApp() bool {
	return c.SourceClientID != "" && c.SourcePrivateKeyPath != ""
}

// HasSourceCredentials reports whether any source authentication is configured.
// Without it the server still accepts webhooks but every run fails to list files.
func (c *Config) HasSourceCredentials() bool {
	return c.SourceToken != "" || c.HasSourceApp()
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is read first; variables already set in
// the environment take precedence over it. Parse errors fail fast.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:           stringVar("ORGSYNC_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:               stringVar("ORGSYNC_DB_PATH", "orgsync.db"),
		OrgConfigPath:        stringVar("ORGSYNC_ORG_CONFIG", "org-info.yml"),
		WebhookSecret:        os.Getenv("ORGSYNC_WEBHOOK_SECRET"),
		GitHubAPIURL:         stringVar("ORGSYNC_GITHUB_API_URL", "https://api.github.com/"),
		SourceToken:          os.Getenv("ORGSYNC_SOURCE_TOKEN"),
		SourceClientID:       os.Getenv("ORGSYNC_SOURCE_CLIENT_ID"),
		SourcePrivateKeyPath: os.Getenv("ORGSYNC_SOURCE_PRIVATE_KEY_PATH"),
		SourceBasePath:       stringVar("GITHUB_SAFE_SETTINGS_PATH", ".github/safe-settings/organizations"),
		DestPathOverride:     os.Getenv("GITHUB_SAFE_SETTINGS_DEST_PATH"),
		BaseBranchOverride:   os.Getenv("GITHUB_SAFE_SETTINGS_DEST_BASE_BRANCH"),
		CommitterName:        stringVar("ORGSYNC_COMMITTER_NAME", "Safe Settings Sync"),
		CommitterEmail:       stringVar("ORGSYNC_COMMITTER_EMAIL", "safe-settings-sync@users.noreply.github.com"),
		LogFormat:            strings.ToLower(stringVar("ORGSYNC_LOG_FORMAT", "text")),
	}

	var err error
	if cfg.SourceInstallationID, err = int64Var("ORGSYNC_SOURCE_INSTALLATION_ID", 0); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = durationVar("ORGSYNC_JWT_TTL", 9*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = durationVar("ORGSYNC_JOB_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxParallelOrgs, err = intVar("ORGSYNC_MAX_PARALLEL_ORGS", 4); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = intVar("ORGSYNC_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(stringVar("ORGSYNC_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("ORGSYNC_LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.JWTTTL <= 0 || c.JWTTTL > MaxJWTTTL:
		return fmt.Errorf("ORGSYNC_JWT_TTL %s must be in (0, %s]", c.JWTTTL, MaxJWTTTL)
	case c.JobTimeout < 0:
		return fmt.Errorf("ORGSYNC_JOB_TIMEOUT %s must not be negative", c.JobTimeout)
	case c.MaxParallelOrgs < 1:
		return fmt.Errorf("ORGSYNC_MAX_PARALLEL_ORGS must be at least 1, got %d", c.MaxParallelOrgs)
	case c.RetryAttempts < 1:
		return fmt.Errorf("ORGSYNC_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("ORGSYNC_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	case (c.SourceClientID == "") != (c.SourcePrivateKeyPath == ""):
		return errors.New("ORGSYNC_SOURCE_CLIENT_ID and ORGSYNC_SOURCE_PRIVATE_KEY_PATH must be set together")
	}
	return nil
}

func stringVar(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func durationVar(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func intVar(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func int64Var(key string, def int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
