// Package redisstore implements ports.StateStore on Redis, the store shared with consumer bots.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"btcTrendAnalyzer/internal/ports"
)

// Config holds Redis connection settings.
type Config struct {
	Addr         string // host:port
	Password     string
	DB           int
	PoolSize     int
	MaxRetries   int // -1 disables retries
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       ports.Logger
}

// Store writes opaque values with plain SET; keys never expire.
type Store struct {
	client *redis.Client
	logger ports.Logger
}

// NewStore creates the client and checks connectivity. An unreachable server
// is logged and tolerated: the publisher's backoff takes over from there.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for redis store")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required: %w", ports.ErrConfigInvalid)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 1,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	s := &Store{
		client: client,
		logger: cfg.Logger.With(map[string]interface{}{"component": "redis_store", "addr": cfg.Addr}),
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		s.logger.Warn(ctx, "Initial Redis connection failed, continuing degraded", map[string]interface{}{"error": err.Error()})
		return s, nil
	}
	s.logger.Info(ctx, "Redis connected", map[string]interface{}{"db": cfg.DB})
	return s, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return translate("set "+key, err)
	}
	return nil
}

// Get returns the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, translate("get "+key, err)
	}
	return v, nil
}

// Keys lists keys matching pattern ("*" for all) in lexical order.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, translate("scan "+pattern, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%s: %w", op, ports.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrContextCanceled, err)
	default:
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrStoreTransient, err)
	}
}
