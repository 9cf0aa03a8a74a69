package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by Load.
const (
	EnvBaseURL       = "HH_BASE_URL"
	EnvUserAgent     = "HH_USER_AGENT"
	EnvPerPage       = "HH_PER_PAGE"
	EnvMaxPages      = "HH_MAX_PAGES"
	EnvRateInterval  = "HH_RATE_INTERVAL"
	EnvOutputDir     = "HH_OUTPUT_DIR"
	EnvCacheTTL      = "HH_CACHE_TTL"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogPretty     = "LOG_PRETTY"
	EnvMetricsAddr   = "METRICS_ADDR"
)

// applyEnv overrides fields from set, non-empty environment variables.
func (c *Config) applyEnv() error {
	setString(EnvBaseURL, &c.API.BaseURL)
	setString(EnvUserAgent, &c.API.UserAgent)
	setString(EnvOutputDir, &c.Output.Dir)
	setString(EnvRedisAddr, &c.Redis.Addr)
	setString(EnvRedisPassword, &c.Redis.Password)
	setString(EnvLogLevel, &c.Log.Level)
	setString(EnvMetricsAddr, &c.Metrics.Addr)

	if err := setInt(EnvPerPage, &c.Search.PerPage); err != nil {
		return err
	}
	if err := setInt(EnvMaxPages, &c.Search.MaxPages); err != nil {
		return err
	}
	if err := setInt(EnvRedisDB, &c.Redis.DB); err != nil {
		return err
	}
	if err := setDuration(EnvRateInterval, &c.RateLimit.Interval); err != nil {
		return err
	}
	if err := setDuration(EnvCacheTTL, &c.Cache.TTL); err != nil {
		return err
	}
	return setBool(EnvLogPretty, &c.Log.Pretty)
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func setString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	s, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s: invalid int %q", key, s)
	}
	*dst = v
	return nil
}

func setBool(key string, dst *bool) error {
	s, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%s: invalid bool %q", key, s)
	}
	*dst = v
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	s, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q (e.g., 250ms, 2s, 1h)", key, s)
	}
	*dst = v
	return nil
}
