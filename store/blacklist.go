package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBlacklistEntryNotFound is an exported constant or variable used by the rotation engine.
var ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")

// PutBlacklist inserts a blacklist entry. Non-permanent entries carry a Redis
// TTL matching the access token's own expiry, so the denylist cannot grow
// unboundedly; permanent entries never expire.
func (s *Store) PutBlacklist(ctx context.Context, entry *BlacklistEntry) error {
	if entry.JWTID == "" {
		return errors.New("blacklist entry requires a jwt id")
	}

	key := s.blacklistKey(entry.JWTID)
	fields := []interface{}{
		"jwt_id", entry.JWTID,
		"token_hash", entry.TokenHash,
		"user_id", entry.UserID,
		"created_at_ms", strconv.FormatInt(entry.CreatedAt.UnixMilli(), 10),
		"expires_at_ms", strconv.FormatInt(timeMilli(entry.ExpiresAt), 10),
		"reason", entry.Reason,
		"type", entry.Type,
		"permanent", boolField(entry.Permanent),
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields...)
		if !entry.Permanent {
			ttl := time.Until(entry.ExpiresAt)
			if ttl <= 0 {
				// Already past the access token's expiry; keep the entry
				// around briefly for observability, then let Redis drop it.
				ttl = time.Minute
			}
			pipe.Expire(ctx, key, ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// IsBlacklisted reports whether an unexpired blacklist entry exists for the
// jti. Expiry is enforced by the key TTL set at insert time.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) IsBlacklisted(ctx context.Context, jwtID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.blacklistKey(jwtID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// GetBlacklist retrieves a blacklist entry by jti.
func (s *Store) GetBlacklist(ctx context.Context, jwtID string) (*BlacklistEntry, error) {
	fields, err := s.redis.HGetAll(ctx, s.blacklistKey(jwtID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrBlacklistEntryNotFound
	}

	createdAt, err := parseMilli(fields["created_at_ms"])
	if err != nil {
		return nil, errors.New("blacklist entry has invalid created_at")
	}
	expiresAt, err := parseMilli(fields["expires_at_ms"])
	if err != nil {
		return nil, errors.New("blacklist entry has invalid expires_at")
	}

	return &BlacklistEntry{
		JWTID:     fields["jwt_id"],
		TokenHash: fields["token_hash"],
		UserID:    fields["user_id"],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		Reason:    fields["reason"],
		Type:      fields["type"],
		Permanent: fields["permanent"] == "1",
	}, nil
}
