package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	AppVersion              string
	Debug                   bool
	LogLevel                string
	LogFormat               string
	AdminAPIKey             string
	StoreDriver             string
	DatabaseURL             string
	DBMaxConns              int
	DBMinConns              int
	MongoURL                string
	MongoDatabase           string
	RedisURL                string
	APIKeyCacheTTL          time.Duration
	TokenAccessTTL          time.Duration
	TokenRefreshTTL         time.Duration
	TokenReuseOnSignIn      bool
	BcryptCost              int
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	TrustProxyHeaders       bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8000"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		AppVersion:              getEnv("APP_VERSION", "1.2.4"),
		Debug:                   getBool("DEBUG", false),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "pretty"),
		AdminAPIKey:             strings.TrimSpace(os.Getenv("ADMIN_API_KEY")),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              getInt("DB_MAX_CONNS", 10),
		DBMinConns:              getInt("DB_MIN_CONNS", 2),
		MongoURL:                getEnv("MONGO_URL", "mongodb://localhost:27017/lemonSSO"),
		MongoDatabase:           getEnv("MONGO_DATABASE", "lemonSSO"),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		APIKeyCacheTTL:          getDuration("API_KEY_CACHE_TTL", 5*time.Minute),
		TokenAccessTTL:          getDuration("TOKEN_ACCESS_TTL", 10*time.Hour),
		TokenRefreshTTL:         getDuration("TOKEN_REFRESH_TTL", 10*time.Hour+30*time.Minute),
		TokenReuseOnSignIn:      getBool("TOKEN_REUSE_ON_SIGNIN", true),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 30),
		TrustProxyHeaders:       getBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.Debug && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store driver")
		}
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo store driver")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory; got %q", c.StoreDriver)
	}

	if c.TokenAccessTTL <= 0 || c.TokenRefreshTTL <= 0 {
		return fmt.Errorf("TOKEN_ACCESS_TTL and TOKEN_REFRESH_TTL must be positive")
	}

	if c.TokenRefreshTTL < c.TokenAccessTTL {
		slog.Warn("refresh lifetime is shorter than access lifetime",
			"access_ttl", c.TokenAccessTTL, "refresh_ttl", c.TokenRefreshTTL)
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
