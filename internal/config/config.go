package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mapping store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the service configuration. Values come from, in increasing
// priority: built-in defaults, the YAML file named by CABLE_CONFIG_FILE,
// a .env file, and the process environment.
type Config struct {
	Port             string         `yaml:"port"`
	Env              string         `yaml:"env"`
	LogLevel         string         `yaml:"log_level"`
	SizingServiceURL string         `yaml:"sizing_service_url"`
	UpstreamTimeout  time.Duration  `yaml:"upstream_timeout"`
	AllowedOrigins   []string       `yaml:"allowed_origins"`
	MappingStore     string         `yaml:"mapping_store"`
	RedisURL         string         `yaml:"redis_url"`
	MappingDSN       string         `yaml:"mapping_dsn"`
	DefaultTopN      int            `yaml:"default_top_n"`
	Postgres         PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds discrete Postgres connection settings. When Host is
// set they take precedence over MappingDSN for the postgres store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:             "8080",
		Env:              "development",
		LogLevel:         "info",
		SizingServiceURL: "http://localhost:8000",
		UpstreamTimeout:  60 * time.Second,
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		MappingStore:     StoreMemory,
		RedisURL:         "redis://localhost:6379",
		MappingDSN:       "file:cable-mappings.db",
		DefaultTopN:      3,
		Postgres:         PostgresConfig{Port: 5432, SSLMode: "disable"},
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// named but unreadable YAML file is.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CABLE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SizingServiceURL = strings.TrimRight(getEnv("SIZING_SERVICE_URL", cfg.SizingServiceURL), "/")
	cfg.MappingStore = strings.ToLower(getEnv("MAPPING_STORE", cfg.MappingStore))
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MappingDSN = getEnv("MAPPING_DSN", cfg.MappingDSN)

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("POSTGRES_DB", cfg.Postgres.DBName)
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("POSTGRES_PORT: %w", err)
		}
		cfg.Postgres.Port = n
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.UpstreamTimeout = d
	}
	if v := os.Getenv("DEFAULT_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DEFAULT_TOP_N: %w", err)
		}
		cfg.DefaultTopN = n
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that have no safe fallback.
func (c Config) Validate() error {
	switch c.MappingStore {
	case StoreMemory, StoreRedis, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown mapping store %q", c.MappingStore)
	}
	if c.SizingServiceURL == "" {
		return fmt.Errorf("SIZING_SERVICE_URL is empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.DefaultTopN < 1 {
		return fmt.Errorf("default top_n must be at least 1")
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
