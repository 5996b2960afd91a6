package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	BaseURL  string
	WebRoot  string
	LogLevel string

	GitHub   GitHubConfig
	Session  SessionConfig
	Projects ProjectStoreConfig
	Snapshot SnapshotConfig
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	// APIURL overrides the REST base URL (GitHub Enterprise or tests).
	APIURL    string
	AuthURL   string
	TokenURL  string
	Scopes    []string
	CacheTTL  time.Duration
	CacheSize int
}

type SessionConfig struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

type ProjectStoreConfig struct {
	// DSN selects the backend: empty -> JSON file at Path,
	// postgres:// or postgresql:// -> PostgreSQL, sqlite:<path> -> SQLite.
	DSN  string
	Path string
}

type SnapshotConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// CacheDir, when set, keeps recently read S3 snapshots on local disk.
	CacheDir      string
	CacheMaxBytes int64
}

// CanUseS3 reports whether the snapshot store has enough settings to talk to S3.
func (c SnapshotConfig) CanUseS3() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// Load reads .env (if present) and then the environment. port is the value
// of the --port flag and loses to PORT.
func Load(port string) (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(port)
}

// FromEnv builds the config from environment variables. defaultPort is used
// when PORT is not set.
func FromEnv(defaultPort string) (*Config, error) {
	port := defaultPort
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		port = envPort
	}
	if port != "" && !strings.Contains(port, ":") {
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:     port,
		Env:      env,
		BaseURL:  strings.TrimRight(firstNonEmpty(strings.TrimSpace(os.Getenv("BASE_URL")), "http://localhost:3000"), "/"),
		WebRoot:  strings.TrimSpace(os.Getenv("WEB_ROOT")),
		LogLevel: strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		GitHub:   loadGitHubConfig(),
		Projects: ProjectStoreConfig{
			DSN:  strings.TrimSpace(os.Getenv("PROJECT_STORE_DSN")),
			Path: firstNonEmpty(strings.TrimSpace(os.Getenv("PROJECT_STORE_PATH")), "tmp/imported_projects.json"),
		},
		Snapshot: loadSnapshotConfig(env),
	}
	cfg.Session = SessionConfig{
		Secret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		MaxAge: envDuration("SESSION_MAX_AGE", 24*time.Hour),
		Secure: cfg.IsProduction(),
	}

	if strings.EqualFold(env, "local") {
		applyLocalDefaults(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.GitHub.ClientID) == "" || strings.TrimSpace(c.GitHub.ClientSecret) == "" {
		return fmt.Errorf("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required")
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

func loadGitHubConfig() GitHubConfig {
	var scopes []string
	for _, s := range strings.Split(firstNonEmpty(os.Getenv("GITHUB_OAUTH_SCOPES"), "repo,read:user"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return GitHubConfig{
		ClientID:     strings.TrimSpace(os.Getenv("GITHUB_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("GITHUB_CLIENT_SECRET")),
		APIURL:       strings.TrimSpace(os.Getenv("GITHUB_API_URL")),
		AuthURL:      strings.TrimSpace(os.Getenv("GITHUB_AUTH_URL")),
		TokenURL:     strings.TrimSpace(os.Getenv("GITHUB_TOKEN_URL")),
		Scopes:       scopes,
		CacheTTL:     envDuration("GITHUB_CACHE_TTL", 30*time.Second),
		CacheSize:    envInt("GITHUB_CACHE_SIZE", 512),
	}
}

func loadSnapshotConfig(env string) SnapshotConfig {
	endpoint := strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ENDPOINT"))
	return SnapshotConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_BUCKET")), "ghimport-snapshots"),
		UseSSL:    resolveUseSSL(env),

		CacheDir:      strings.TrimSpace(os.Getenv("SNAPSHOT_CACHE_DIR")),
		CacheMaxBytes: int64(envInt("SNAPSHOT_CACHE_MAX_BYTES", 256<<20)),
	}
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("SNAPSHOT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
