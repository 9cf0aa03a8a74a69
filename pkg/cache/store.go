// Package cache keeps extracted vacancy details in Redis, so a vacancy
// listed under several categories, or seen again in a later run, costs one
// detail request per TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss means no live entry exists for the vacancy.
	ErrMiss = errors.New("cache miss")

	// ErrCorrupt means the stored entry could not be decoded. It is removed
	// on read.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// DefaultPrefix namespaces the keys written by the collector.
const DefaultPrefix = "hh:vacancy"

var (
	hhCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hh_cache_lookups_total",
			Help: "Detail cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "corrupt"
	)

	hhCacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hh_cache_errors_total",
			Help: "Detail cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)
)

// Entry is what the cache holds for one vacancy: the extracted detail, not
// the raw API response.
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Skills   []string  `json:"skills"`
	CachedAt time.Time `json:"cached_at"`
}

// Detail returns the cached vacancy detail.
func (e Entry) Detail() vacancy.ItemDetail {
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	return vacancy.ItemDetail{Name: e.Name, Skills: skills}
}

// Store is a Redis-backed detail cache. Expiry is left to Redis.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a store writing keys under prefix (DefaultPrefix when
// empty).
func NewStore(redisClient *redis.Client, prefix string) (*Store, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: redisClient, prefix: prefix}, nil
}

// Key returns the Redis key of vacancy id.
//
// Example:
//
//	hh:vacancy:93284751
func (s *Store) Key(id string) string {
	return s.prefix + ":" + id
}

// Get returns the cached entry of vacancy id, ErrMiss when there is none.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	data, err := s.redis.Get(ctx, s.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			hhCacheLookupsTotal.WithLabelValues("miss").Inc()
			return Entry{}, ErrMiss
		}
		hhCacheErrorsTotal.WithLabelValues("get").Inc()
		return Entry{}, fmt.Errorf("redis get %s: %w", s.Key(id), err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.ID != id {
		hhCacheLookupsTotal.WithLabelValues("corrupt").Inc()
		_ = s.Delete(ctx, id)
		if err == nil {
			err = fmt.Errorf("entry belongs to vacancy %q", entry.ID)
		}
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	hhCacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry, nil
}

// Put stores the detail of vacancy id for ttl. A non-positive ttl stores
// nothing.
func (s *Store) Put(ctx context.Context, id string, detail vacancy.ItemDetail, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(Entry{
		ID:       id,
		Name:     detail.Name,
		Skills:   detail.Skills,
		CachedAt: time.Now().UTC(),
	})
	if err != nil {
		hhCacheErrorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, s.Key(id), data, ttl).Err(); err != nil {
		hhCacheErrorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set %s: %w", s.Key(id), err)
	}
	return nil
}

// Delete removes the entry of vacancy id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.Key(id)).Err(); err != nil {
		hhCacheErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", s.Key(id), err)
	}
	return nil
}
