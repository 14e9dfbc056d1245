// Package config reads the storefront's settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beautivra/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	BackendURL         string
	PublicOrigin       string
	RequestTimeout     time.Duration
	BackendTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	SessionSecret string
	SessionMaxAge int
	SecureCookies bool

	StorageDriver string
	SQLitePath    string
	Postgres      storage.Credentials
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
	MongoURI      string
	MongoDBName   string
	MongoTTL      time.Duration

	CartIdleTimeout   time.Duration
	CartSweepInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	FreeShippingThreshold decimal.Decimal
	PollInterval          time.Duration
	MaxPendingPolls       int
	MaxFailedPolls        int
}

var storageDrivers = map[string]bool{
	"memory":   true,
	"sqlite":   true,
	"postgres": true,
	"redis":    true,
	"mongo":    true,
}

// Load reads the environment. Unset variables fall back to defaults; set but
// unparsable ones are errors.
func Load() (*Config, error) {
	p := parser{}
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		BackendURL:         strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8001"), "/"),
		PublicOrigin:       strings.TrimRight(getEnv("PUBLIC_ORIGIN", ""), "/"),
		RequestTimeout:     p.duration("REQUEST_TIMEOUT", 30*time.Second),
		BackendTimeout:     p.duration("BACKEND_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(p.int("MAX_REQUEST_BODY_SIZE", 1<<20)), // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret-change-me"),
		SessionMaxAge: p.int("SESSION_MAX_AGE", 30*24*60*60),
		SecureCookies: p.bool("SECURE_COOKIES", false),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "memory")),
		SQLitePath:    getEnv("SQLITE_PATH", "./storefront.db"),
		Postgres: storage.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     p.int("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTTL:      p.duration("REDIS_TTL", 30*24*time.Hour),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
		MongoTTL:      p.duration("MONGO_TTL", 30*24*time.Hour),

		CartIdleTimeout:   p.duration("CART_IDLE_TIMEOUT", 30*time.Minute),
		CartSweepInterval: p.duration("CART_SWEEP_INTERVAL", 5*time.Minute),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-orders"),

		FreeShippingThreshold: p.decimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(75)),
		PollInterval:          p.duration("CONFIRMATION_POLL_INTERVAL", 2*time.Second),
		MaxPendingPolls:       p.int("CONFIRMATION_MAX_PENDING", 5),
		MaxFailedPolls:        p.int("CONFIRMATION_MAX_ERRORS", 3),
	}

	if p.err != nil {
		return nil, p.err
	}
	if !storageDrivers[cfg.StorageDriver] {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first parse error so Load can read every variable in one
// expression.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) decimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
