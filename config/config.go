package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Event store backends.
const (
	StorePostgres   = "postgres"
	StoreClickHouse = "clickhouse"
	StoreMemory     = "memory"
)

type Config struct {
	AppEnv  string
	Port    string
	GinMode string

	DatabaseURL string
	EventStore  string

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	// Geolocation
	RedisURL    string
	GeoCacheTTL time.Duration
	GeoEndpoint string
	GeoTimeout  time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	FrontendOrigin string

	LogLevel  string
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getEnv("PORT", "8080")
	cfg.GinMode = getEnv("GIN_MODE", "debug")

	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.EventStore = strings.ToLower(getEnv("EVENT_STORE", StorePostgres))

	cfg.ClickHouseHost = getEnv("CLICKHOUSE_HOST", "")
	cfg.ClickHousePort = getIntEnv("CLICKHOUSE_NATIVE_PORT", 9000)
	cfg.ClickHouseDB = getEnv("CLICKHOUSE_DB_NAME", "default")
	cfg.ClickHouseUser = getEnv("CLICKHOUSE_USERNAME", "default")
	cfg.ClickHousePassword = getEnv("CLICKHOUSE_PASSWORD", "")

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.GeoCacheTTL = getDuration("GEO_CACHE_TTL", 24*time.Hour)
	cfg.GeoEndpoint = getEnv("GEO_ENDPOINT", "http://ip-api.com/json/")
	cfg.GeoTimeout = getDuration("GEO_TIMEOUT", 3*time.Second)

	cfg.JWTSecret = getEnv("JWT_SECRET_KEY", "")
	cfg.JWTTTL = getDuration("JWT_TTL", 24*time.Hour)

	cfg.FrontendOrigin = getEnv("FE_ORIGIN", "http://localhost:3000")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 5*time.Second)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET_KEY")
	}
	switch cfg.EventStore {
	case StorePostgres, StoreMemory:
	case StoreClickHouse:
		if cfg.ClickHouseHost == "" {
			return nil, fmt.Errorf("missing CLICKHOUSE_HOST (required when EVENT_STORE=clickhouse)")
		}
	default:
		return nil, fmt.Errorf("unknown EVENT_STORE %q", cfg.EventStore)
	}

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
