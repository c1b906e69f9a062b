package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// TokenStoreRedis keeps grants in Redis.
	TokenStoreRedis = "redis"
	// TokenStorePostgres keeps grants in a Postgres table.
	TokenStorePostgres = "postgres"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	ServiceName          string
	ApplicationID        string
	PublicKey            string
	ClientSecret         string
	BotToken             string
	BaseURL              string
	APIBaseURL           string
	CookieSecret         string
	TokenStore           string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	ReviveRequiredRoleID string
	ReviveTargetRoleID   string
	ReviveContact        string
	PlatformName         string
	RoleConnectionMeta   map[string]string
	RoleConnectionSchema string
	AdminToken           string
	RateLimitRPM         int
	ProviderTimeout      time.Duration
	TelemetryEndpoint    string
	TelemetryInsecure    bool
}

// RedirectURI is the OAuth callback registered with the platform.
func (c Config) RedirectURI() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/oauth-callback"
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.BaseURL), "https://")
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecret == "" {
		cfg.CookieSecret = cfg.ClientSecret
	}
	return cfg, nil
}

// LoadRegistration reads the subset needed to register commands and metadata.
func LoadRegistration() (Config, error) {
	cfg := fromEnv()
	if cfg.ApplicationID == "" {
		return Config{}, fmt.Errorf("DISCORD_APPLICATION_ID is required")
	}
	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

func fromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		ServiceName:          getEnv("SERVICE_NAME", "linkedroles-worker"),
		ApplicationID:        strings.TrimSpace(os.Getenv("DISCORD_APPLICATION_ID")),
		PublicKey:            strings.TrimSpace(os.Getenv("DISCORD_PUBLIC_KEY")),
		ClientSecret:         strings.TrimSpace(os.Getenv("DISCORD_CLIENT_SECRET")),
		BotToken:             strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		BaseURL:              firstNonEmpty(os.Getenv("BASE_URL"), os.Getenv("WORKER_URL")),
		APIBaseURL:           getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"),
		CookieSecret:         os.Getenv("COOKIE_SECRET"),
		TokenStore:           strings.ToLower(getEnv("TOKEN_STORE", TokenStoreRedis)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		ReviveRequiredRoleID: getEnv("REVIVE_REQUIRED_ROLE_ID", "909724765026148402"),
		ReviveTargetRoleID:   getEnv("REVIVE_TARGET_ROLE_ID", "879527848573042738"),
		ReviveContact:        getEnv("REVIVE_CONTACT", "CyberFlame United#0001 (<@218977195375329281>)"),
		PlatformName:         getEnv("PLATFORM_NAME", "NCEA Help"),
		RoleConnectionMeta:   getPairs("ROLE_CONNECTION_METADATA"),
		RoleConnectionSchema: os.Getenv("ROLE_CONNECTION_SCHEMA"),
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 120),
		ProviderTimeout:      getDuration("DISCORD_HTTP_TIMEOUT", 10*time.Second),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}
}

// Validate checks the values every entrypoint needs.
func (c Config) Validate() error {
	if c.ApplicationID == "" {
		return fmt.Errorf("DISCORD_APPLICATION_ID is required")
	}
	if c.PublicKey == "" {
		return fmt.Errorf("DISCORD_PUBLIC_KEY is required")
	}
	if _, err := hex.DecodeString(c.PublicKey); err != nil {
		return fmt.Errorf("DISCORD_PUBLIC_KEY must be hex encoded")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("DISCORD_CLIENT_SECRET is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	switch c.TokenStore {
	case TokenStoreRedis:
	case TokenStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TOKEN_STORE=postgres")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be %q or %q", TokenStoreRedis, TokenStorePostgres)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

// getPairs parses "k=v,k2=v2" into a map; malformed entries are skipped.
func getPairs(key string) map[string]string {
	out := map[string]string{}
	v, ok := os.LookupEnv(key)
	if !ok {
		return out
	}
	for _, part := range strings.Split(v, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(val)
	}
	return out
}
