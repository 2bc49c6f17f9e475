// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gatewaybench/internal/catalog"
)

// Benchmark generator modes.
const (
	BenchmarkModeSimulated = "simulated"
	BenchmarkModeLive      = "live"
)

// Catalog sources.
const (
	CatalogSourceStatic  = "static"
	CatalogSourceGateway = "gateway"
)

// Config holds the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark"`
	Chat        ChatConfig        `yaml:"chat"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// BodySizeLimit uses echo's notation, e.g. "10M".
	BodySizeLimit string `yaml:"body_size_limit"`
}

// GatewayConfig points at the OpenAI-compatible gateway every model is reached through.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// CatalogConfig controls where the model list comes from.
type CatalogConfig struct {
	Source      string        `yaml:"source"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Unavailable []string      `yaml:"unavailable"`
}

// LeaderboardConfig configures the public throughput leaderboard.
type LeaderboardConfig struct {
	// URL empty means always serve the built-in table.
	URL     string        `yaml:"url"`
	TTL     time.Duration `yaml:"ttl"`
	Timeout time.Duration `yaml:"timeout"`
}

// BenchmarkConfig configures benchmark generation and caching.
type BenchmarkConfig struct {
	Mode        string        `yaml:"mode"`
	ResultTTL   time.Duration `yaml:"result_ttl"`
	ListingTTL  time.Duration `yaml:"listing_ttl"`
	Concurrency int           `yaml:"concurrency"`
	// RedisURL enables a shared result store. Empty keeps results in-process.
	RedisURL string `yaml:"redis_url"`
}

// ChatConfig configures the chat passthrough.
type ChatConfig struct {
	DefaultModel string `yaml:"default_model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig selects the log handler and level.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "10M",
		},
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:4000/v1",
			Timeout: 2 * time.Minute,
		},
		Catalog: CatalogConfig{
			Source:   CatalogSourceStatic,
			CacheTTL: 5 * time.Minute,
			Unavailable: slices.Clone(catalog.DefaultUnavailable),
		},
		Leaderboard: LeaderboardConfig{
			TTL:     time.Hour,
			Timeout: 10 * time.Second,
		},
		Benchmark: BenchmarkConfig{
			Mode:        BenchmarkModeSimulated,
			ResultTTL:   24 * time.Hour,
			ListingTTL:  5 * time.Minute,
			Concurrency: 4,
		},
		Chat: ChatConfig{
			DefaultModel: "openai/gpt-4o-mini",
			SystemPrompt: "You are a software engineer exploring Generative AI.",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		Logging: LoggingConfig{
			Format: "auto",
			Level:  "info",
		},
	}
}

// Load reads configuration from .env, an optional YAML file and the environment.
// The YAML file is GATEWAYBENCH_CONFIG when set, else config/config.yaml or
// config.yaml in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	path := os.Getenv("GATEWAYBENCH_CONFIG")
	if path == "" {
		for _, candidate := range []string{"config/config.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	return LoadFrom(path)
}

// LoadFrom builds the configuration from the YAML file at path (skipped when
// empty) layered over Defaults, then applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(raw))), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	var errs []error
	switch c.Benchmark.Mode {
	case BenchmarkModeSimulated, BenchmarkModeLive:
	default:
		errs = append(errs, fmt.Errorf("benchmark.mode must be %q or %q, got %q",
			BenchmarkModeSimulated, BenchmarkModeLive, c.Benchmark.Mode))
	}
	switch c.Catalog.Source {
	case CatalogSourceStatic, CatalogSourceGateway:
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be %q or %q, got %q",
			CatalogSourceStatic, CatalogSourceGateway, c.Catalog.Source))
	}
	if c.Benchmark.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("benchmark.concurrency must be at least 1, got %d", c.Benchmark.Concurrency))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must not be empty"))
	}
	if c.Chat.DefaultModel == "" {
		errs = append(errs, errors.New("chat.default_model must not be empty"))
	}
	return errors.Join(errs...)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} with environment values.
// A variable that is unset or empty and has no default is left as written.
func expandString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if strings.Contains(match, ":-") {
			return parts[2]
		}
		return match
	})
}

func applyEnvOverrides(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Server.Port)
	setString("GATEWAY_BASE_URL", &cfg.Gateway.BaseURL)
	setString("GATEWAY_API_KEY", &cfg.Gateway.APIKey)
	setString("CATALOG_SOURCE", &cfg.Catalog.Source)
	setString("LEADERBOARD_URL", &cfg.Leaderboard.URL)
	setString("BENCHMARK_MODE", &cfg.Benchmark.Mode)
	setString("REDIS_URL", &cfg.Benchmark.RedisURL)
	setString("CHAT_DEFAULT_MODEL", &cfg.Chat.DefaultModel)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = enabled
	}
	if v := os.Getenv("BENCHMARK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BENCHMARK_CONCURRENCY %q: %w", v, err)
		}
		cfg.Benchmark.Concurrency = n
	}
	if v := os.Getenv("UNAVAILABLE_MODELS"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		cfg.Catalog.Unavailable = ids
	}
	return nil
}
