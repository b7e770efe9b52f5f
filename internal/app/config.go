package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage      string `default:"postgres" usage:"Storage driver: postgres or memory"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative product image paths" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Memory       MemoryConfig
	Catalog      CatalogConfig
	Order        OrderConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// MemoryConfig populates the memory driver at startup.
type MemoryConfig struct {
	SeedFile    string `usage:"Products JSON (.json or .json.gz) loaded into memory storage" flag:"memory-seed-file"`
	AdminAPIKey string `usage:"API key granted catalog:write in memory storage" flag:"memory-admin-api-key"`
}

// CatalogConfig tunes the product query engine.
type CatalogConfig struct {
	LowStockThreshold int `default:"5"   usage:"Stock at or below which a product is on promotion" flag:"low-stock-threshold"`
	DefaultPageSize   int `default:"12"  usage:"Page size when the request has none" flag:"default-page-size"`
	MaxPageSize       int `default:"100" usage:"Largest accepted page size" flag:"max-page-size"`
}

// OrderConfig bounds retries of a placement that lost a stock race.
type OrderConfig struct {
	MaxAttempts          int           `default:"3"    usage:"Placement attempts, including the first" flag:"order-max-attempts"`
	RetryInitialInterval time.Duration `default:"20ms" usage:"First backoff delay after a conflict" flag:"order-retry-interval"`
}

// KafkaConfig enables OrderPlaced events when Brokers is set.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers; empty disables events"`
	Topic        string        `default:"storefront.orders" usage:"Topic for order events"`
	BatchTimeout time.Duration `default:"10ms" usage:"Producer batch flush interval" flag:"kafka-batch-timeout"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"20" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Requests a client may issue at once"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage)
	}
	if c.Catalog.DefaultPageSize > c.Catalog.MaxPageSize {
		return errors.Errorf("default page size %d exceeds max %d", c.Catalog.DefaultPageSize, c.Catalog.MaxPageSize)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
