package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache type constants
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Default SSO assertion source keys, used when the deployment does not
// override the mapping. Keys follow the header names an ADFS-fronted reverse
// proxy injects.
var defaultSSOMapping = map[string]string{
	"email":     "ADFS_EMAIL",
	"login":     "ADFS_LOGIN",
	"personId":  "ADFS_PERSONID",
	"phone":     "ADFS_PHONENUMBER",
	"fax":       "ADFS_FAXNUMBER",
	"lastname":  "ADFS_LASTNAME",
	"firstname": "ADFS_FIRSTNAME",
	"institute": "ADFS_HOMEINSTITUTE",
}

// DefaultLogoutCallbackURL is where SSO session termination redirects when
// the deployment configures nothing else.
const DefaultLogoutCallbackURL = "https://login.cern.ch/adfs/ls/?wa=wsignout1.0"

// AuthenticatorConfig holds the per-backend settings recognized by this core.
type AuthenticatorConfig struct {
	ID                string
	Name              string            // display name; empty falls back to the backend default
	SSOActive         bool              // whether SSO login runs through this backend
	SSOMapping        map[string]string // logical field -> assertion source key
	LogoutCallbackURL string
}

// SourceKey resolves the assertion source key for a logical field, falling
// back to the built-in default when the mapping does not override it.
func (a AuthenticatorConfig) SourceKey(field string) string {
	if key, ok := a.SSOMapping[field]; ok && key != "" {
		return key
	}
	return defaultSSOMapping[field]
}

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Seed settings
	DefaultAdminPassword string // empty means a random one is generated

	// Authentication backends, in sign-in order
	AuthBackends   []string
	Authenticators map[string]AuthenticatorConfig

	// HTTP directory backend
	HTTPDirURL                string
	HTTPDirTimeout            time.Duration
	HTTPDirInsecureSkipVerify bool
	HTTPDirAuthMode           string // "none", "simple", or "hmac"
	HTTPDirAuthSecret         string
	HTTPDirAuthHeader         string
	HTTPDirMaxRetries         int
	HTTPDirRetryDelay         time.Duration

	// Cache
	CacheType     string // "memory" or "redis"
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitPerMinute int

	// Metrics
	MetricsEnabled bool
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "auth.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	backends := getEnvSlice("AUTH_BACKENDS", []string{"local"})

	cfg := &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:     getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", time.Hour),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),

		AuthBackends:   backends,
		Authenticators: loadAuthenticators(backends),

		HTTPDirURL:                getEnv("HTTP_DIR_URL", ""),
		HTTPDirTimeout:            getEnvDuration("HTTP_DIR_TIMEOUT", 10*time.Second),
		HTTPDirInsecureSkipVerify: getEnvBool("HTTP_DIR_INSECURE_SKIP_VERIFY", false),
		HTTPDirAuthMode:           getEnv("HTTP_DIR_AUTH_MODE", "none"),
		HTTPDirAuthSecret:         getEnv("HTTP_DIR_AUTH_SECRET", ""),
		HTTPDirAuthHeader:         getEnv("HTTP_DIR_AUTH_HEADER", "X-API-Secret"),
		HTTPDirMaxRetries:         getEnvInt("HTTP_DIR_MAX_RETRIES", 3),
		HTTPDirRetryDelay:         getEnvDuration("HTTP_DIR_RETRY_DELAY", 1*time.Second),

		CacheType:     getEnv("CACHE_TYPE", CacheTypeMemory),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
	}

	return cfg
}

// loadAuthenticators reads the per-backend settings. Each backend id maps to
// an env prefix: AUTH_<ID>_NAME, AUTH_<ID>_SSO_ACTIVE, AUTH_<ID>_SSO_MAPPING
// (comma list of field=SourceKey pairs) and AUTH_<ID>_LOGOUT_CALLBACK_URL.
func loadAuthenticators(backends []string) map[string]AuthenticatorConfig {
	configs := make(map[string]AuthenticatorConfig, len(backends))
	for _, id := range backends {
		prefix := "AUTH_" + strings.ToUpper(id) + "_"
		configs[id] = AuthenticatorConfig{
			ID:                id,
			Name:              getEnv(prefix+"NAME", ""),
			SSOActive:         getEnvBool(prefix+"SSO_ACTIVE", false),
			SSOMapping:        parseMapping(getEnv(prefix+"SSO_MAPPING", "")),
			LogoutCallbackURL: getEnv(prefix+"LOGOUT_CALLBACK_URL", ""),
		}
	}
	return configs
}

// AuthenticatorConfig returns the settings for a backend id. Unconfigured
// backends get a zero-value config so accessors fall back to defaults.
func (c *Config) AuthenticatorConfig(id string) AuthenticatorConfig {
	if cfg, ok := c.Authenticators[id]; ok {
		return cfg
	}
	return AuthenticatorConfig{ID: id}
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres")
	}
	if len(c.AuthBackends) == 0 {
		return fmt.Errorf("at least one authentication backend is required")
	}
	for _, id := range c.AuthBackends {
		if id == "httpdir" && c.HTTPDirURL == "" {
			return fmt.Errorf("HTTP_DIR_URL is required for the httpdir backend")
		}
	}
	return nil
}

// parseMapping parses "field=SourceKey,field2=SourceKey2" into a map.
// Malformed entries are skipped.
func parseMapping(raw string) map[string]string {
	mapping := map[string]string{}
	for _, pair := range splitAndTrim(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		field := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if field != "" && key != "" {
			mapping[field] = key
		}
	}
	return mapping
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
