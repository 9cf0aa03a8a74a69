// Package config loads the collector configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// then environment variables. The result is validated before use and passed
// explicitly to the components that need it; nothing is kept in package state.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/batch"
	"github.com/Sternrassler/hh-skills-collector/pkg/client"
	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/ratelimit"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the YAML file to load when no path is given.
const EnvConfigFile = "CONFIG_FILE"

// Default search parameters.
const (
	DefaultPerPage  = vacancy.MaxPageSize
	DefaultMaxPages = 20
	DefaultCacheTTL = 24 * time.Hour
)

// Config is the full collector configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Search     SearchConfig     `yaml:"search"`
	Categories []Category       `yaml:"categories" validate:"required,min=1,unique=Label,dive"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// APIConfig configures the hh.ru client.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	UserAgent string        `yaml:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// SearchConfig bounds every category's walk.
type SearchConfig struct {
	PerPage  int `yaml:"per_page" validate:"min=1,max=100"`
	MaxPages int `yaml:"max_pages" validate:"min=1"`
}

// Category maps an artifact label to a search term.
type Category struct {
	Label string `yaml:"label" validate:"required,excludesall=/\\,ne=.,ne=.."`
	Term  string `yaml:"term" validate:"required"`
}

// RateLimitConfig sets the spacing between detail requests.
type RateLimitConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

// RedisConfig enables the shared rate gate and the detail cache when Addr is
// set.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// CacheConfig configures the detail cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" validate:"gte=0"`
}

// OutputConfig says where artifacts go.
type OutputConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig enables the /metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultCategories returns the built-in categories in run order.
func DefaultCategories() []Category {
	return []Category{
		{Label: "backend", Term: "Backend"},
		{Label: "frontend", Term: "Frontend"},
		{Label: "fullstack", Term: "Fullstack"},
		{Label: "data_analyst", Term: `"Data analyst" OR "Аналитик данных"`},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   client.DefaultBaseURL,
			UserAgent: client.DefaultUserAgent,
			Timeout:   client.DefaultTimeout,
		},
		Search: SearchConfig{
			PerPage:  DefaultPerPage,
			MaxPages: DefaultMaxPages,
		},
		Categories: DefaultCategories(),
		RateLimit: RateLimitConfig{
			Interval: ratelimit.DefaultInterval,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (CONFIG_FILE when path is empty) and the environment, then validates it.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}

	cfg, err := loadYAML(path, Default)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the file at path onto the defaults built by fn.
func loadYAML[T any](path string, fn func() *T) (*T, error) {
	cfg := fn()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ClientConfig returns the hh.ru client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:   c.API.BaseURL,
		UserAgent: c.API.UserAgent,
		Timeout:   c.API.Timeout,
	}
}

// BatchConfig returns the runner settings. Categories keep their order.
func (c *Config) BatchConfig() batch.Config {
	cats := make([]batch.Category, len(c.Categories))
	for i, cat := range c.Categories {
		cats[i] = batch.Category{Label: cat.Label, Term: cat.Term}
	}
	return batch.Config{
		Categories: cats,
		PageSize:   c.Search.PerPage,
		MaxPages:   c.Search.MaxPages,
	}
}

// LoggingConfig returns the logger settings writing to stderr.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}
