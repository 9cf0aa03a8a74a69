package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/batch"
	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigFile, EnvBaseURL, EnvUserAgent, EnvPerPage, EnvMaxPages,
		EnvRateInterval, EnvOutputDir, EnvCacheTTL, EnvRedisAddr,
		EnvRedisPassword, EnvRedisDB, EnvLogLevel, EnvLogPretty, EnvMetricsAddr,
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	if cfg.API.UserAgent != "HH-User-Agent" {
		t.Errorf("UserAgent = %q, want HH-User-Agent", cfg.API.UserAgent)
	}
	if cfg.Search.PerPage != 100 {
		t.Errorf("PerPage = %d, want 100", cfg.Search.PerPage)
	}
	if cfg.Search.MaxPages != 20 {
		t.Errorf("MaxPages = %d, want 20", cfg.Search.MaxPages)
	}
	if cfg.RateLimit.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.RateLimit.Interval)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled by default")
	}

	labels := make([]string, len(cfg.Categories))
	for i, c := range cfg.Categories {
		labels[i] = c.Label
	}
	if got := strings.Join(labels, ","); got != "backend,frontend,fullstack,data_analyst" {
		t.Errorf("category order = %s", got)
	}
	if cfg.Categories[3].Term != `"Data analyst" OR "Аналитик данных"` {
		t.Errorf("data_analyst term = %q", cfg.Categories[3].Term)
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.PerPage != DefaultPerPage {
		t.Errorf("PerPage = %d, want %d", cfg.Search.PerPage, DefaultPerPage)
	}

	// a missing file falls back to defaults
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if len(cfg.Categories) != 4 {
		t.Errorf("categories = %d, want 4", len(cfg.Categories))
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, `
search:
  per_page: 50
  max_pages: 3
categories:
  - label: golang
    term: Go
  - label: rust
    term: Rust
rate_limit:
  interval: 250ms
output:
  dir: /tmp/out
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.PerPage != 50 || cfg.Search.MaxPages != 3 {
		t.Errorf("Search = %+v, want per_page 50 max_pages 3", cfg.Search)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[0].Label != "golang" || cfg.Categories[1].Term != "Rust" {
		t.Errorf("Categories = %+v", cfg.Categories)
	}
	if cfg.RateLimit.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %v, want 250ms", cfg.RateLimit.Interval)
	}
	if cfg.Output.Dir != "/tmp/out" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	// untouched sections keep their defaults
	if cfg.API.BaseURL != "https://api.hh.ru" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if lc := cfg.LoggingConfig(); lc.Level != logging.LevelDebug || !lc.Pretty {
		t.Errorf("LoggingConfig() = %+v", lc)
	}
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "search:\n  max_pages: 7\n")
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.MaxPages != 7 {
		t.Errorf("MaxPages = %d, want 7", cfg.Search.MaxPages)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "search:\n  per_page: 50\n")
	t.Setenv(EnvPerPage, "10")
	t.Setenv(EnvMaxPages, "2")
	t.Setenv(EnvUserAgent, "my-app/1.0 (me@example.com)")
	t.Setenv(EnvRateInterval, "2s")
	t.Setenv(EnvCacheTTL, "1h")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvMetricsAddr, ":9090")
	t.Setenv(EnvLogPretty, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.PerPage != 10 {
		t.Errorf("PerPage = %d, want 10 (env wins over file)", cfg.Search.PerPage)
	}
	if cfg.Search.MaxPages != 2 {
		t.Errorf("MaxPages = %d, want 2", cfg.Search.MaxPages)
	}
	if cfg.API.UserAgent != "my-app/1.0 (me@example.com)" {
		t.Errorf("UserAgent = %q", cfg.API.UserAgent)
	}
	if cfg.RateLimit.Interval != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.RateLimit.Interval)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.DB != 3 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
	if !cfg.Log.Pretty {
		t.Error("Log.Pretty = false, want true")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "search: [",
			wantErr: "parse config",
		},
		{
			name:    "bad int env",
			env:     map[string]string{EnvPerPage: "many"},
			wantErr: EnvPerPage,
		},
		{
			name:    "bad duration env",
			env:     map[string]string{EnvRateInterval: "soon"},
			wantErr: EnvRateInterval,
		},
		{
			name:    "bad bool env",
			env:     map[string]string{EnvLogPretty: "sometimes"},
			wantErr: EnvLogPretty,
		},
		{
			name:    "per_page too large",
			env:     map[string]string{EnvPerPage: "101"},
			wantErr: "search.per_page",
		},
		{
			name:    "zero max pages",
			env:     map[string]string{EnvMaxPages: "0"},
			wantErr: "search.max_pages",
		},
		{
			name:    "empty user agent",
			yaml:    "api:\n  user_agent: \"\"\n",
			wantErr: "api.user_agent",
		},
		{
			name:    "bad log level",
			env:     map[string]string{EnvLogLevel: "loud"},
			wantErr: "log.level",
		},
		{
			name:    "bad redis addr",
			env:     map[string]string{EnvRedisAddr: "no-port"},
			wantErr: "redis.addr",
		},
		{
			name:    "negative interval",
			env:     map[string]string{EnvRateInterval: "-1s"},
			wantErr: "rate_limit.interval",
		},
		{
			name:    "no categories",
			yaml:    "categories: []\n",
			wantErr: "categories",
		},
		{
			name:    "duplicate labels",
			yaml:    "categories:\n  - {label: a, term: A}\n  - {label: a, term: B}\n",
			wantErr: "categories",
		},
		{
			name:    "label with path separator",
			yaml:    "categories:\n  - {label: a/b, term: A}\n",
			wantErr: "categories[0].label",
		},
		{
			name:    "empty term",
			yaml:    "categories:\n  - {label: a, term: \"\"}\n",
			wantErr: "categories[0].term",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_WrapsErrInvalid(t *testing.T) {
	cfg := Default()
	cfg.Search.PerPage = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() error = %v, want ErrInvalid", err)
	}
}

func TestBatchConfig(t *testing.T) {
	cfg := Default()
	cfg.Search.MaxPages = 5

	got := cfg.BatchConfig()
	if got.PageSize != 100 || got.MaxPages != 5 {
		t.Errorf("BatchConfig() = %+v", got)
	}
	if len(got.Categories) != 4 || got.Categories[0] != (batch.Category{Label: "backend", Term: "Backend"}) {
		t.Errorf("Categories = %+v", got.Categories)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("BatchConfig().Validate() error = %v", err)
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.API.UserAgent = "ua"

	cc := cfg.ClientConfig()
	if cc.UserAgent != "ua" || cc.BaseURL != "https://api.hh.ru" || cc.Timeout != 30*time.Second {
		t.Errorf("ClientConfig() = %+v", cc)
	}
}
