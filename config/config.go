// Package config loads application configuration for the brandmem binaries.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, a .env file and BRANDMEM_* environment variables. Nested keys
// map to variables by upper-casing and replacing dots with underscores, so
// crawler.reader_url is BRANDMEM_CRAWLER_READER_URL.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/brandmem/ai"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BRANDMEM"

// Storage backends.
const (
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
)

// Config represents the complete configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AI        AIConfig        `mapstructure:"ai"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Credits   CreditsConfig   `mapstructure:"credits"`
	Server    ServerConfig    `mapstructure:"server"`
}

// StorageConfig selects and locates the memory store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

// EndpointConfig is one model endpoint.
type EndpointConfig struct {
	Backend string `mapstructure:"backend"`
	Host    string `mapstructure:"host"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// AIConfig holds the embedding and generation endpoints.
type AIConfig struct {
	// APIKey is used by Gemini endpoints that set no key of their own.
	APIKey         string           `mapstructure:"api_key"`
	Embedding      EndpointConfig   `mapstructure:"embedding"`
	Generation     []EndpointConfig `mapstructure:"generation"`
	MaxAttempts    int              `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration    `mapstructure:"retry_base_delay"`
	BatchSize      int              `mapstructure:"batch_size"`
	Temperature    float64          `mapstructure:"temperature"`
}

// CrawlerConfig configures page fetching.
type CrawlerConfig struct {
	ReaderURL    string        `mapstructure:"reader_url"`
	ReaderToken  string        `mapstructure:"reader_token"`
	UserAgent    string        `mapstructure:"user_agent"`
	PageInterval time.Duration `mapstructure:"page_interval"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig locates the optional page cache. An empty address disables it.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// RetrievalConfig tunes grounding retrieval.
type RetrievalConfig struct {
	Limit     int     `mapstructure:"limit"`
	Threshold float32 `mapstructure:"threshold"`
	CacheSize int     `mapstructure:"cache_size"`
}

// CreditsConfig sets the provisioned allowance.
type CreditsConfig struct {
	Allowance int `mapstructure:"allowance"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads configuration. path names a YAML file and may be empty; envFiles
// are .env files loaded into the process environment, missing ones are
// skipped. Variables already set in the environment win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := ai.DefaultConfig()

	v.SetDefault("log_level", "info")

	v.SetDefault("storage.backend", StorageBadger)
	v.SetDefault("storage.path", "./brandmem-data")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.embedding.backend", string(def.Embedding.Backend))
	v.SetDefault("ai.embedding.host", "")
	v.SetDefault("ai.embedding.api_key", "")
	v.SetDefault("ai.embedding.model", def.Embedding.Model)
	v.SetDefault("ai.generation", []map[string]any{
		{"backend": string(def.Generation[0].Backend), "model": def.Generation[0].Model},
	})
	v.SetDefault("ai.max_attempts", def.MaxAttempts)
	v.SetDefault("ai.retry_base_delay", def.RetryBaseDelay)
	v.SetDefault("ai.batch_size", def.BatchSize)
	v.SetDefault("ai.temperature", def.Temperature)

	v.SetDefault("crawler.reader_url", "")
	v.SetDefault("crawler.reader_token", "")
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.page_interval", "500ms")
	v.SetDefault("crawler.cache_ttl", "24h")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)

	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("retrieval.threshold", 0.5)
	v.SetDefault("retrieval.cache_size", 256)

	v.SetDefault("credits.allowance", 3)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBadger:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for badger")
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Credits.Allowance < 0 {
		return fmt.Errorf("credits.allowance cannot be negative, got %d", c.Credits.Allowance)
	}
	if c.Retrieval.Limit < 1 {
		return fmt.Errorf("retrieval.limit must be at least 1, got %d", c.Retrieval.Limit)
	}
	return nil
}

// AIConfig converts the AI section into an ai.Config. The result is not
// validated; provider constructors do that.
func (c *Config) AIConfig() *ai.Config {
	generation := make([]ai.Endpoint, len(c.AI.Generation))
	for i, ep := range c.AI.Generation {
		generation[i] = endpoint(ep)
	}
	return ai.NewConfig(
		ai.WithEmbedding(endpoint(c.AI.Embedding)),
		ai.WithGeneration(generation...),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithMaxAttempts(c.AI.MaxAttempts),
		ai.WithRetryBaseDelay(c.AI.RetryBaseDelay),
		ai.WithBatchSize(c.AI.BatchSize),
		ai.WithTemperature(c.AI.Temperature),
	)
}

func endpoint(ep EndpointConfig) ai.Endpoint {
	return ai.Endpoint{
		Backend: ai.Backend(ep.Backend),
		Host:    ep.Host,
		APIKey:  ep.APIKey,
		Model:   ep.Model,
	}
}
