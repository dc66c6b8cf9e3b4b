package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LockoutStoreMemory = "memory"
	LockoutStoreRedis  = "redis"

	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// AuthConfig tunes authentication. The attempt limit and lock window are
// fixed in package lockout; LockoutIdleTTL only bounds how long an unlocked
// failure streak is remembered (0 keeps it until a successful login).
type AuthConfig struct {
	BcryptCost           int
	RequestsPerMinute    int
	LockoutStore         string
	LockoutShards        int
	LockoutSweepInterval time.Duration
	LockoutIdleTTL       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Backend    string
	UploadDir  string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "moverap"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", env != "production"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			BcryptCost:           getEnvAsInt("BCRYPT_COST", 12),
			RequestsPerMinute:    getEnvAsInt("AUTH_REQUESTS_PER_MINUTE", 20),
			LockoutStore:         strings.ToLower(getEnv("LOCKOUT_STORE", LockoutStoreMemory)),
			LockoutShards:        getEnvAsInt("LOCKOUT_SHARDS", 32),
			LockoutSweepInterval: getEnvAsDuration("LOCKOUT_SWEEP_INTERVAL", 5*time.Minute),
			LockoutIdleTTL:       getEnvAsDuration("LOCKOUT_IDLE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendLocal)),
			UploadDir:  getEnv("UPLOAD_DIR", "uploads"),
			S3Bucket:   getEnv("S3_BUCKET", ""),
			S3Region:   getEnv("S3_REGION", "us-east-1"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.LockoutStore {
	case LockoutStoreMemory:
	case LockoutStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when LOCKOUT_STORE=redis")
		}
	default:
		return fmt.Errorf("LOCKOUT_STORE must be %q or %q (got %q)", LockoutStoreMemory, LockoutStoreRedis, c.Auth.LockoutStore)
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty")
		}
	case StorageBackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q (got %q)", StorageBackendLocal, StorageBackendS3, c.Storage.Backend)
	}

	if c.Auth.RequestsPerMinute <= 0 {
		return fmt.Errorf("AUTH_REQUESTS_PER_MINUTE must be positive")
	}
	if c.Auth.LockoutSweepInterval <= 0 {
		return fmt.Errorf("LOCKOUT_SWEEP_INTERVAL must be positive")
	}
	if c.Auth.LockoutIdleTTL < 0 {
		return fmt.Errorf("LOCKOUT_IDLE_TTL must not be negative")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 || env == "production" {
		return origins
	}

	// Development: the static front-end is served from these
	return []string{
		"http://localhost:8080",
		"http://localhost:3000",
		"http://localhost:5500",
		"http://127.0.0.1:5500",
		"http://127.0.0.1:8080",
	}
}
