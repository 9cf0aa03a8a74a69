package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyGate is the default key holding the current request slot.
const RedisKeyGate = "hh:rate_limit:slot"

// RedisGate is a fixed-interval gate shared by every collector process that
// points at the same Redis. A slot is taken with SET NX PX interval, so two
// granted requests are always at least one interval apart no matter which
// process sends them.
type RedisGate struct {
	redis    *redis.Client
	key      string
	interval time.Duration
	logger   zerolog.Logger
}

// NewRedisGate creates a shared gate on key (RedisKeyGate when empty).
func NewRedisGate(redisClient *redis.Client, key string, interval time.Duration, logger zerolog.Logger) (*RedisGate, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0 (got %s)", interval)
	}
	if key == "" {
		key = RedisKeyGate
	}
	return &RedisGate{
		redis:    redisClient,
		key:      key,
		interval: interval,
		logger:   logger,
	}, nil
}

// Wait blocks until this process owns the next slot.
func (g *RedisGate) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		hhRateLimitWaitSeconds.WithLabelValues("redis").Observe(time.Since(start).Seconds())
	}()

	for {
		acquired, err := g.redis.SetNX(ctx, g.key, start.UnixNano(), g.interval).Result()
		if err != nil {
			hhRateLimitErrorsTotal.WithLabelValues("redis").Inc()
			return fmt.Errorf("acquire rate limit slot: %w", err)
		}
		if acquired {
			return nil
		}

		wait, err := g.redis.PTTL(ctx, g.key).Result()
		if err != nil {
			hhRateLimitErrorsTotal.WithLabelValues("redis").Inc()
			return fmt.Errorf("read rate limit slot ttl: %w", err)
		}
		// -2: key vanished, -1: no ttl (should not happen). Retry promptly.
		if wait <= 0 || wait > g.interval {
			wait = time.Millisecond
		}

		g.logger.Debug().
			Dur("wait", wait).
			Msg("Rate limit slot taken - waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
