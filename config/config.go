package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken       string
	DeepseekAPIKey string

	StoreBackend string
	DBDriver     string
	DBPath       string
	DBDSN        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr          string
	CORSOrigins       []string
	NextQuestionDelay time.Duration
	Debug             bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	cfg := &Config{
		BotToken:       botToken,
		DeepseekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		StoreBackend:   getenv("STORE_BACKEND", BackendSQL),
		DBDriver:       getenv("DB_DRIVER", "sqlite3"),
		DBPath:         getenv("DB_PATH", "./data/examquiz.db"),
		DBDSN:          os.Getenv("DB_DSN"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
	}

	switch cfg.StoreBackend {
	case BackendSQL, BackendRedis:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQL, BackendRedis, cfg.StoreBackend)
	}

	switch cfg.DBDriver {
	case "sqlite3", "sqlite":
	case "postgres":
		if cfg.StoreBackend == BackendSQL && cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN environment variable is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	for _, origin := range strings.Split(os.Getenv("HTTP_CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB %q", v)
		}
		cfg.RedisDB = n
	}

	cfg.NextQuestionDelay = time.Second
	if v := os.Getenv("NEXT_QUESTION_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid NEXT_QUESTION_DELAY %q", v)
		}
		cfg.NextQuestionDelay = d
	}

	if v := os.Getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG %q", v)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// DataSource returns the DSN for the configured SQL driver
func (c *Config) DataSource() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return c.DBPath
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
