package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRecordNotFound is an exported constant or variable used by the rotation engine.
var ErrRecordNotFound = errors.New("refresh token record not found")

// ErrRedisUnavailable is an exported constant or variable used by the rotation engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Mark statuses returned by [Store.MarkUsed]. Exactly one concurrent caller
// observes MarkRotated for a given record.
const (
	MarkNotFound       int64 = 0
	MarkSecretMismatch int64 = 1
	MarkExpired        int64 = 2
	MarkRevoked        int64 = 3
	MarkAlreadyUsed    int64 = 4
	MarkRotated        int64 = 5
)

// Revoke statuses returned by [Store.Revoke].
const (
	RevokeMissed  int64 = -1
	RevokeExpired int64 = -2
	RevokeNoop    int64 = 0
	RevokeDone    int64 = 1
)

const markUsedScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return 0
end
local secret = redis.call("HGET", key, "secret_hash")
if not secret or secret ~= ARGV[1] then
  return 1
end
local expires = tonumber(redis.call("HGET", key, "expires_at_ms") or "0")
local now = tonumber(ARGV[2])
if expires <= now then
  return 2
end
if redis.call("HGET", key, "revoked") == "1" then
  return 3
end
if redis.call("HGET", key, "used") == "1" then
  return 4
end
redis.call("HSET", key, "used", "1", "used_at_ms", ARGV[2])
return 5
`

var markUsedLua = redis.NewScript(markUsedScript)

const revokeScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return -1
end
if redis.call("HGET", key, "revoked") == "1" then
  return 0
end
local expires = tonumber(redis.call("HGET", key, "expires_at_ms") or "0")
if expires <= tonumber(ARGV[1]) then
  return -2
end
redis.call("HSET", key, "revoked", "1", "revoked_at_ms", ARGV[1], "revoked_reason", ARGV[2], "revoked_ip", ARGV[3])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// Store is the Redis-backed token store handling record persistence, index
// maintenance, and atomic status transitions.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a token [Store] backed by the given Redis client. prefix sets
// the Redis key namespace.
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "tg"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) recordKey(id string) string {
	return s.prefix + ":rt:" + id
}

func (s *Store) familyKey(family string) string {
	return s.prefix + ":tf:" + family
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":tu:" + userID
}

func (s *Store) blacklistKey(jwtID string) string {
	return s.prefix + ":bl:" + jwtID
}

func (s *Store) eventsKey() string {
	return s.prefix + ":sev"
}

func (s *Store) processedKey() string {
	return s.prefix + ":sevp"
}

func (s *Store) failureUserKey(userID string) string {
	return s.prefix + ":risk:u:" + userID
}

func (s *Store) failureIPKey(ip string) string {
	return s.prefix + ":risk:ip:" + ip
}

// Save persists a [Record] and registers it in the family and user indexes.
// ttl bounds physical retention; logical expiry lives in the record itself.
//
//	Performance: 5 Redis commands in one transaction.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("record ttl must be > 0")
	}

	recordKey := s.recordKey(rec.ID)
	familyKey := s.familyKey(rec.Family)
	userKey := s.userKey(rec.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey, encodeRecord(rec)...)
		pipe.Expire(ctx, recordKey, ttl)
		pipe.SAdd(ctx, familyKey, rec.ID)
		pipe.SAdd(ctx, userKey, rec.ID)
		// Index sets outlive their newest member by the record TTL; the
		// sweeper removes dangling members before that.
		pipe.Expire(ctx, familyKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Expire(ctx, userKey, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a record by ID. Returns [ErrRecordNotFound] for missing or
// physically expired records.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeRecord(fields)
}

// MarkUsed atomically transitions a record from Active to Used, but only if
// the presented secret hash matches and the record is neither expired,
// revoked, nor already used. The returned status tells the caller which
// branch the script took; under concurrent presentation of the same token
// exactly one caller gets [MarkRotated].
func (s *Store) MarkUsed(ctx context.Context, id, secretHash string, now time.Time) (int64, error) {
	res, err := markUsedLua.Run(ctx, s.redis,
		[]string{s.recordKey(id)},
		secretHash,
		strconv.FormatInt(now.UnixMilli(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	status, ok := res.(int64)
	if !ok {
		return 0, errors.New("unexpected mark-used script result")
	}
	return status, nil
}

// Revoke atomically marks a record revoked unless it already is or has
// expired. Returns [RevokeDone] only for the call that actually flipped the
// flag, which keeps family revocation idempotent and countable.
func (s *Store) Revoke(ctx context.Context, id, reason, revokedByIP string, now time.Time) (int64, error) {
	res, err := revokeLua.Run(ctx, s.redis,
		[]string{s.recordKey(id)},
		strconv.FormatInt(now.UnixMilli(), 10),
		reason,
		revokedByIP,
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	status, ok := res.(int64)
	if !ok {
		return 0, errors.New("unexpected revoke script result")
	}
	return status, nil
}

// FamilyRecords loads every surviving record in a token family. Members whose
// record hash has physically expired are skipped.
func (s *Store) FamilyRecords(ctx context.Context, family string) ([]*Record, error) {
	return s.indexRecords(ctx, s.familyKey(family))
}

// UserRecords loads every surviving record belonging to a user, across all of
// the user's families.
func (s *Store) UserRecords(ctx context.Context, userID string) ([]*Record, error) {
	return s.indexRecords(ctx, s.userKey(userID))
}

func (s *Store) indexRecords(ctx context.Context, indexKey string) ([]*Record, error) {
	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// Delete removes a record hash and its index memberships. Used by the sweeper
// once a record is past expiry plus the retention margin.
func (s *Store) Delete(ctx context.Context, rec *Record) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(rec.ID))
		pipe.SRem(ctx, s.familyKey(rec.Family), rec.ID)
		pipe.SRem(ctx, s.userKey(rec.UserID), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
