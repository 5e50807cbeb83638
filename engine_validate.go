package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secfold/tokenguard/store"
)

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Validation is signature and claims first, then a single blacklist EXISTS.
// A blacklist lookup failure fails closed: a token that cannot be checked is
// not accepted.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AccessResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if e.config.Blacklist.Enabled {
		if e.store == nil {
			return nil, ErrEngineNotReady
		}
		listed, err := e.store.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			e.metricInc(MetricValidateFailure)
			return nil, mapStoreErr(err)
		}
		if listed {
			e.metricInc(MetricBlacklistHit)
			e.metricInc(MetricValidateFailure)
			e.recordSecurityEvent(ctx, EventBlacklistRejected, claims.UID, "", false, "access token jti is blacklisted")
			e.emitAudit(ctx, auditEventBlacklistHit, false, claims.UID, "", "", "", ErrBlacklistedJWT, func() map[string]string {
				return map[string]string{"jwt_id": claims.ID}
			})
			return nil, ErrBlacklistedJWT
		}
	}

	e.metricInc(MetricValidateSuccess)
	return &AccessResult{
		UserID: claims.UID,
		JWTID:  claims.ID,
	}, nil
}

// IsBlacklisted describes the isblacklisted operation and its observable behavior.
//
// IsBlacklisted may return an error when input validation, dependency calls, or security checks fail.
// IsBlacklisted does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IsBlacklisted(ctx context.Context, jwtID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}
	listed, err := e.store.IsBlacklisted(ctx, jwtID)
	if err != nil {
		return false, mapStoreErr(err)
	}
	return listed, nil
}

// BlacklistEntry describes the blacklistentry operation and its observable behavior.
//
// BlacklistEntry may return an error when input validation, dependency calls, or security checks fail.
// BlacklistEntry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BlacklistEntry(ctx context.Context, jwtID string) (*TokenBlacklistEntry, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	entry, err := e.store.GetBlacklist(ctx, jwtID)
	if err != nil {
		if errors.Is(err, store.ErrBlacklistEntryNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, mapStoreErr(err)
	}
	return entry, nil
}
