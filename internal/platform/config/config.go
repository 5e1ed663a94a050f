package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	RedisURL           string
	Environment        string
	StorageDir         string
	ProgressTTL        time.Duration
	MaxBodyBytes       int64
	RunMigrations      bool
	RunSeed            bool
	SeedMasterUsername string
	SeedMasterPassword string
	TokenTTL           time.Duration
}

func Load() Config {
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		Environment:        getEnv("APP_ENV", "development"),
		StorageDir:         getEnv("STORAGE_DIR", "storage"),
		ProgressTTL:        getEnvDuration("PROGRESS_TTL", 5*time.Minute),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 10*1024*1024)),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", true),
		SeedMasterUsername: getEnv("SEED_MASTER_USERNAME", "master"),
		SeedMasterPassword: getEnv("SEED_MASTER_PASSWORD", ""),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedMasterPassword) == "" {
			return fmt.Errorf("SEED_MASTER_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.ProgressTTL <= 0 {
		return fmt.Errorf("PROGRESS_TTL must be positive")
	}
	return nil
}
