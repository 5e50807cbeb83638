package tokenguard

import (
	"context"
	"errors"
	"time"
)

// TokenInfo is the safe introspection view for a refresh record. It
// intentionally excludes the secret hash and any encodable token material.
type TokenInfo struct {
	RecordID      string
	Family        string
	Version       int
	CreatedAt     time.Time
	ExpiresAt     time.Time
	Used          bool
	Revoked       bool
	RevokedReason string
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ActiveTokenCount describes the activetokencount operation and its observable behavior.
//
// ActiveTokenCount may return an error when input validation, dependency calls, or security checks fail.
// ActiveTokenCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveTokenCount(ctx context.Context, userID string) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, errors.New("empty user id")
	}

	records, err := e.store.UserRecords(ctx, userID)
	if err != nil {
		return 0, mapStoreErr(err)
	}

	now := time.Now().UTC()
	count := 0
	for _, r := range records {
		if r.IsActive(now) {
			count++
		}
	}
	return count, nil
}

// ListUserTokens describes the listusertokens operation and its observable behavior.
//
// ListUserTokens may return an error when input validation, dependency calls, or security checks fail.
// ListUserTokens does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListUserTokens(ctx context.Context, userID string) ([]TokenInfo, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, errors.New("empty user id")
	}

	records, err := e.store.UserRecords(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	infos := make([]TokenInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, TokenInfo{
			RecordID:      r.ID,
			Family:        r.Family,
			Version:       r.Version,
			CreatedAt:     r.CreatedAt,
			ExpiresAt:     r.ExpiresAt,
			Used:          r.Used,
			Revoked:       r.Revoked,
			RevokedReason: r.RevokedReason,
		})
	}
	return infos, nil
}

// Health describes the health operation and its observable behavior.
//
// Health may return an error when input validation, dependency calls, or security checks fail.
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.store.Ping(ctx)
	latency := time.Since(start)

	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}
