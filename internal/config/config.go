package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // APP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Store     StoreConfig
	Cache     CacheConfig
	Broker    BrokerConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"ecoplate-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	Timezone    string `envconfig:"APP_TIMEZONE" default:"America/Los_Angeles"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
}

// StoreConfig selects the transactional store.
type StoreConfig struct {
	Type     string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path     string `envconfig:"STORE_PATH" default:"./data/ecoplate.db"`
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT" default:"0"`
	Name     string `envconfig:"STORE_NAME" default:"ecoplate"`
	User     string `envconfig:"STORE_USER" default:"ecoplate"`
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORE_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"STORE_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORE_CONN_MAX_LIFETIME" default:"5m"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"ecoplate"`
}

// BrokerConfig holds the event broker settings. An empty URL logs events instead.
type BrokerConfig struct {
	URL      string `envconfig:"RABBITMQ_URL" default:""`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"ecoplate.events"`
}

// AuditConfig holds redemption audit log settings. An empty URI keeps the
// log in memory.
type AuditConfig struct {
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"ecoplate"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"redemption_attempts"`
	MemoryMax       int    `envconfig:"AUDIT_MEMORY_MAX" default:"10000"`
}

// RateLimitConfig holds the redeem endpoint token bucket.
type RateLimitConfig struct {
	Enabled  bool    `envconfig:"REDEEM_RATE_LIMIT_ENABLED" default:"true"`
	Rate     float64 `envconfig:"REDEEM_RATE_LIMIT_RPS" default:"5"`
	Capacity int     `envconfig:"REDEEM_RATE_LIMIT_BURST" default:"20"`
}

// AdminConfig holds the keys accepted in X-Admin-Key.
type AdminConfig struct {
	Keys []string `envconfig:"ADMIN_KEYS" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location resolves the configured timezone.
func (a *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// DefaultPort returns the conventional port for the store type when none is set.
func (s *StoreConfig) DefaultPort() int {
	if s.Port != 0 {
		return s.Port
	}
	switch s.Type {
	case "postgres":
		return 5432
	case "mysql":
		return 3306
	}
	return 0
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ValidKeys drops blank admin keys.
func (a *AdminConfig) ValidKeys() []string {
	out := make([]string, 0, len(a.Keys))
	for _, k := range a.Keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Store.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("invalid STORE_TYPE %q", cfg.Store.Type)
	}
	switch cfg.Cache.Type {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("invalid CACHE_TYPE %q", cfg.Cache.Type)
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
