package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultEventPageSize = 50

// AppendEvent appends a security event to the append-only stream and returns
// the assigned stream ID.
//
//	Performance: 1 Redis XADD.
func (s *Store) AppendEvent(ctx context.Context, ev *SecurityEvent) (string, error) {
	id, err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.eventsKey(),
		Values: map[string]interface{}{
			"event_type":   ev.EventType,
			"severity":     ev.Severity,
			"user_id":      ev.UserID,
			"ip":           ev.IP,
			"timestamp_ms": strconv.FormatInt(ev.Timestamp.UnixMilli(), 10),
			"success":      boolField(ev.Success),
			"risk_score":   strconv.FormatFloat(ev.RiskScore, 'f', 4, 64),
			"investigate":  boolField(ev.RequiresInvestigation),
			"detail":       ev.Detail,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id, nil
}

// Events returns security events matching the filter, oldest first, with
// offset/limit paging applied after filtering.
func (s *Store) Events(ctx context.Context, filter EventFilter) ([]SecurityEvent, error) {
	start := "-"
	if !filter.From.IsZero() {
		start = strconv.FormatInt(filter.From.UnixMilli(), 10) + "-0"
	}
	stop := "+"
	if !filter.To.IsZero() {
		stop = strconv.FormatInt(filter.To.UnixMilli(), 10) + "-999999999"
	}

	entries, err := s.redis.XRange(ctx, s.eventsKey(), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	processed, err := s.processedSet(ctx)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventPageSize
	}

	matched := 0
	events := make([]SecurityEvent, 0, limit)
	for _, entry := range entries {
		ev := decodeEvent(entry)
		ev.Processed = processed[ev.ID]

		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if filter.UserID != "" && ev.UserID != filter.UserID {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		if filter.RequiresInvestigation != nil && ev.RequiresInvestigation != *filter.RequiresInvestigation {
			continue
		}

		matched++
		if matched <= filter.Offset {
			continue
		}
		events = append(events, ev)
		if len(events) >= limit {
			break
		}
	}

	return events, nil
}

// MarkEventProcessed flags an event as handled by an investigation workflow.
// Stream entries are immutable, so the flag lives in a side set.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) error {
	if err := s.redis.SAdd(ctx, s.processedKey(), eventID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IncrFailure bumps the trailing-window failure counters for a user and IP.
// Counters feed risk scoring; the window TTL is applied on first hit.
func (s *Store) IncrFailure(ctx context.Context, userID, ip string, window time.Duration) error {
	keys := make([]string, 0, 2)
	if userID != "" {
		keys = append(keys, s.failureUserKey(userID))
	}
	if ip != "" {
		keys = append(keys, s.failureIPKey(ip))
	}

	for _, key := range keys {
		count, err := s.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count == 1 {
			if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}

	return nil
}

// FailureCounts returns the current trailing-window failure counts for a
// user and IP. Missing counters read as zero.
func (s *Store) FailureCounts(ctx context.Context, userID, ip string) (int64, int64, error) {
	var userCount, ipCount int64

	if userID != "" {
		n, err := s.counterValue(ctx, s.failureUserKey(userID))
		if err != nil {
			return 0, 0, err
		}
		userCount = n
	}
	if ip != "" {
		n, err := s.counterValue(ctx, s.failureIPKey(ip))
		if err != nil {
			return 0, 0, err
		}
		ipCount = n
	}

	return userCount, ipCount, nil
}

func (s *Store) counterValue(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

func (s *Store) processedSet(ctx context.Context) (map[string]bool, error) {
	ids, err := s.redis.SMembers(ctx, s.processedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func decodeEvent(entry redis.XMessage) SecurityEvent {
	get := func(field string) string {
		v, _ := entry.Values[field].(string)
		return v
	}

	timestamp, _ := parseMilli(get("timestamp_ms"))
	riskScore, _ := strconv.ParseFloat(get("risk_score"), 64)

	return SecurityEvent{
		ID:                    entry.ID,
		EventType:             get("event_type"),
		Severity:              get("severity"),
		UserID:                get("user_id"),
		IP:                    get("ip"),
		Timestamp:             timestamp,
		Success:               get("success") == "1",
		RiskScore:             riskScore,
		RequiresInvestigation: get("investigate") == "1",
		Detail:                get("detail"),
	}
}
