// Command hh-collector collects hh.ru vacancies per category and writes one
// {label}_vacancies.json artifact per category.
//
// Configuration comes from an optional YAML file (-config or CONFIG_FILE)
// and environment variables; see pkg/config. The process exits with status 1
// when any category failed and 2 on configuration errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Sternrassler/hh-skills-collector/pkg/batch"
	"github.com/Sternrassler/hh-skills-collector/pkg/cache"
	"github.com/Sternrassler/hh-skills-collector/pkg/client"
	"github.com/Sternrassler/hh-skills-collector/pkg/collector"
	"github.com/Sternrassler/hh-skills-collector/pkg/config"
	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/metrics"
	"github.com/Sternrassler/hh-skills-collector/pkg/pagination"
	"github.com/Sternrassler/hh-skills-collector/pkg/ratelimit"
	"github.com/Sternrassler/hh-skills-collector/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("hh-collector", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file (default $"+config.EnvConfigFile+")")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return exitConfig
	}

	logger := logging.Setup(cfg.LoggingConfig())

	hh, err := client.New(cfg.ClientConfig())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create hh.ru client")
		return exitConfig
	}
	defer hh.Close()

	limiter, fetchOpts, closeRedis, err := setupLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		return exitFailed
	}
	defer closeRedis()

	store, err := storage.NewFileStore(cfg.Output.Dir)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.Output.Dir).Msg("Failed to prepare output directory")
		return exitFailed
	}

	coll := collector.New(
		pagination.NewWalker(hh),
		collector.NewFetcher(hh, limiter, fetchOpts...),
	)

	runner, err := batch.NewRunner(cfg.BatchConfig(), coll, store,
		batch.WithReporter(batch.NewLogReporter(logger)),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid batch configuration")
		return exitConfig
	}

	stopMetrics, err := startMetrics(ctx, cfg.Metrics.Addr, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start metrics listener")
		return exitFailed
	}
	defer stopMetrics()

	logger.Info().
		Str("user_agent", cfg.API.UserAgent).
		Str("output_dir", store.Dir()).
		Int("categories", len(cfg.Categories)).
		Int("per_page", cfg.Search.PerPage).
		Int("max_pages", cfg.Search.MaxPages).
		Dur("rate_interval", cfg.RateLimit.Interval).
		Bool("redis", cfg.Redis.Enabled()).
		Msg("Starting hh.ru skills collection")

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Run interrupted")
		return exitFailed
	}
	if failed := summary.Failed(); len(failed) > 0 {
		return exitFailed
	}
	return exitOK
}

// setupLimiter returns the request gate and fetcher options. Without Redis
// the gate is in-process; with Redis it is shared between processes and
// detail responses are cached.
func setupLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ratelimit.Limiter, []collector.FetcherOption, func(), error) {
	if !cfg.Redis.Enabled() {
		return ratelimit.NewInterval(cfg.RateLimit.Interval), nil, func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	var limiter ratelimit.Limiter = ratelimit.NewInterval(0)
	if cfg.RateLimit.Interval > 0 {
		gate, err := ratelimit.NewRedisGate(redisClient, ratelimit.RedisKeyGate, cfg.RateLimit.Interval,
			logger.With().Str("component", "rate-gate").Logger())
		if err != nil {
			redisClient.Close()
			return nil, nil, nil, err
		}
		limiter = gate
	}

	var opts []collector.FetcherOption
	if cfg.Cache.TTL > 0 {
		store, err := cache.NewStore(redisClient, cache.DefaultPrefix)
		if err != nil {
			redisClient.Close()
			return nil, nil, nil, err
		}
		opts = append(opts, collector.WithCache(store, cfg.Cache.TTL))
	}

	return limiter, opts, func() { redisClient.Close() }, nil
}

// startMetrics serves /metrics on addr until the returned stop func is
// called. An empty addr disables the listener.
func startMetrics(ctx context.Context, addr string, logger zerolog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	srv, err := metrics.Listen(addr, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx); err != nil {
			logger.Error().Err(err).Msg("Metrics listener failed")
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}, nil
}
