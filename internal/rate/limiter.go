package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableRefreshThrottle bool
	EnableIPThrottle      bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// Limiter enforces per-family and per-IP rotation attempt limits using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRefresh checks whether the family+IP pair is within the rotation
// attempt budget. Returns an error if rate-limited.
func (l *Limiter) CheckRefresh(ctx context.Context, family, ip string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	if err := l.checkCounter(ctx, familyKey(family), l.config.MaxRefreshAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, ipKey(ip), l.config.MaxRefreshAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementRefresh records a failed rotation attempt for the family+IP pair.
// Returns [ErrRateLimited] when the attempt budget is exceeded.
func (l *Limiter) IncrementRefresh(ctx context.Context, family, ip string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, familyKey(family), l.config.RefreshCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, ipKey(ip), l.config.RefreshCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxRefreshAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetRefresh clears the attempt counters for the family+IP pair. Called
// after a successful rotation.
func (l *Limiter) ResetRefresh(ctx context.Context, family, ip string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	keys := []string{familyKey(family)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func familyKey(family string) string {
	return "trl:f:" + family
}

func ipKey(ip string) string {
	return "trl:ip:" + ip
}
