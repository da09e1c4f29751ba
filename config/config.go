package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort = "8080"
	defaultCacheTTL   = 5 * time.Minute

	StorageMongo  = "mongo"
	StorageMemory = "memory"

	AuthHeader = "header"
	AuthJWT    = "jwt"
)

type Config struct {
	ServerPort string

	StorageMode string
	MongoURL    string
	MongoDBName string

	// RedisURL enables the post cache when set
	RedisURL string
	CacheTTL time.Duration

	AuthMode  string
	JWTSecret string

	ConditionalWrites bool

	LogLevel  string
	LogFormat string
}

// Load reads the environment, after merging in a .env file if one exists.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		ServerPort:  firstNonEmpty(getenv("PORT"), getenv("SERVER_PORT"), defaultServerPort),
		StorageMode: firstNonEmpty(getenv("STORAGE_MODE"), StorageMongo),
		MongoURL:    getenv("MONGO_URL"),
		MongoDBName: getenv("MONGO_DBNAME"),
		RedisURL:    getenv("REDIS_URL"),
		CacheTTL:    defaultCacheTTL,
		AuthMode:    firstNonEmpty(getenv("AUTH_MODE"), AuthHeader),
		JWTSecret:   getenv("JWT_SECRET"),
		LogLevel:    firstNonEmpty(getenv("LOG_LEVEL"), "info"),
		LogFormat:   getenv("LOG_FORMAT"),
	}

	if raw := getenv("CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	if raw := getenv("CONDITIONAL_WRITES"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CONDITIONAL_WRITES: %w", err)
		}
		cfg.ConditionalWrites = enabled
	}

	switch cfg.StorageMode {
	case StorageMongo:
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("empty mongo url")
		}
		if cfg.MongoDBName == "" {
			return nil, fmt.Errorf("empty mongo dbname")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unexpected storage mode: %s", cfg.StorageMode)
	}

	switch cfg.AuthMode {
	case AuthHeader:
	case AuthJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("empty jwt secret")
		}
	default:
		return nil, fmt.Errorf("unexpected auth mode: %s", cfg.AuthMode)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
