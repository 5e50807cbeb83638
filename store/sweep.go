package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const sweepScanBatch = 128

// SweepExpired removes record hashes whose logical expiry is at or before
// cutoff minus nothing — i.e. expiryDate+retention <= cutoff — together with
// their index memberships, then prunes index members whose record hash is
// already gone. It never touches the Used/Revoked state of unexpired records.
// Returns the number of records removed.
func (s *Store) SweepExpired(ctx context.Context, cutoff time.Time, retention time.Duration) (int, error) {
	removed, err := s.sweepRecords(ctx, cutoff, retention)
	if err != nil {
		return removed, err
	}

	if err := s.pruneIndexes(ctx, s.prefix+":tf:*"); err != nil {
		return removed, err
	}
	if err := s.pruneIndexes(ctx, s.prefix+":tu:*"); err != nil {
		return removed, err
	}

	return removed, nil
}

func (s *Store) sweepRecords(ctx context.Context, cutoff time.Time, retention time.Duration) (int, error) {
	removed := 0
	cutoffMs := cutoff.Add(-retention).UnixMilli()

	iter := s.redis.Scan(ctx, 0, s.prefix+":rt:*", sweepScanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		expiresField, err := s.redis.HGet(ctx, key, "expires_at_ms").Result()
		if err != nil {
			// Key can vanish between SCAN and HGET when its TTL fires.
			continue
		}
		expiresMs, err := strconv.ParseInt(expiresField, 10, 64)
		if err != nil {
			continue
		}
		if expiresMs > cutoffMs {
			continue
		}

		fields, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			continue
		}
		rec, err := decodeRecord(fields)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			// Corrupt hash past retention: drop the key, skip index repair.
			_ = s.redis.Del(ctx, key).Err()
			continue
		}

		if err := s.Delete(ctx, rec); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

func (s *Store) pruneIndexes(ctx context.Context, pattern string) error {
	iter := s.redis.Scan(ctx, 0, pattern, sweepScanBatch).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()

		ids, err := s.redis.SMembers(ctx, indexKey).Result()
		if err != nil {
			continue
		}
		for _, id := range ids {
			exists, err := s.redis.Exists(ctx, s.recordKey(id)).Result()
			if err != nil {
				continue
			}
			if exists == 0 {
				_ = s.redis.SRem(ctx, indexKey, id).Err()
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
