package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/damon-houk/rates/internal/infrastructure/api"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
)

const envPrefix = "RATES"

// Cache backends
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

type APIConfig struct {
	URL       string        `envconfig:"API_URL"`
	AccessKey string        `envconfig:"ACCESS_KEY"`
	Timeout   time.Duration `envconfig:"HTTP_TIMEOUT"`
}

type CacheConfig struct {
	Backend   string `envconfig:"CACHE_BACKEND" default:"file"`
	File      string `envconfig:"CACHE_FILE" default:"cachefile.txt"`
	BadgerDir string `envconfig:"BADGER_DIR" default:".rates-cache"`
}

// AppConfig holds everything the CLI reads from the environment
type AppConfig struct {
	APIConfig
	CacheConfig
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env files (missing ones are ignored) and then the RATES_*
// environment variables. Variables already set in the environment win over
// .env entries.
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	// Unset variables take the client's defaults; explicitly empty ones still
	// fail validation
	if _, ok := os.LookupEnv(envPrefix + "_API_URL"); !ok {
		cfg.APIConfig.URL = api.DefaultBaseURL
	}
	if _, ok := os.LookupEnv(envPrefix + "_HTTP_TIMEOUT"); !ok {
		cfg.APIConfig.Timeout = api.DefaultTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the CLI cannot act on
func (c *AppConfig) Validate() error {
	c.CacheConfig.Backend = strings.ToLower(strings.TrimSpace(c.CacheConfig.Backend))

	switch c.CacheConfig.Backend {
	case BackendFile:
		if c.CacheConfig.File == "" {
			return errors.New("RATES_CACHE_FILE must not be empty")
		}
	case BackendBadger:
		if c.CacheConfig.BadgerDir == "" {
			return errors.New("RATES_BADGER_DIR must not be empty")
		}
	default:
		return fmt.Errorf("unknown cache backend %q, expected %q or %q", c.CacheConfig.Backend, BackendFile, BackendBadger)
	}

	if c.APIConfig.Timeout <= 0 {
		return fmt.Errorf("RATES_HTTP_TIMEOUT must be positive, got %s", c.APIConfig.Timeout)
	}

	if c.APIConfig.URL == "" {
		return errors.New("RATES_API_URL must not be empty")
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid RATES_LOG_LEVEL: %w", err)
	}

	return nil
}

// Level returns the parsed log level
func (c *AppConfig) Level() logger.Level {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.InfoLevel
	}
	return level
}
