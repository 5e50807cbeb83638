package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/secfold/tokenguard/internal"
	"github.com/secfold/tokenguard/internal/rate"
	"github.com/secfold/tokenguard/store"
)

// Rotate describes the rotate operation and its observable behavior.
//
// Rotate may return an error when input validation, dependency calls, or security checks fail.
// Rotate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Rotate exchanges a single-use refresh token for a fresh access/refresh
// pair. The Active to Used transition runs as one atomic conditional write
// in Redis, so under concurrent presentation of the same token exactly one
// caller wins; losers get [ErrConcurrentRotation] inside the replay window
// and trigger the family-wide breach cascade outside it.
func (e *Engine) Rotate(ctx context.Context, refreshToken, ip, userAgent string) (*TokenPair, error) {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Rotation.Enabled {
		return nil, ErrRotationDisabled
	}

	recordID, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.recordSecurityEvent(ctx, EventRotationFailed, "", ip, false, "malformed refresh token")
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", ip, ErrInvalidToken, nil)
		return nil, ErrInvalidToken
	}
	throttleKey := recordID.String()

	if e.limiter != nil {
		if err := e.limiter.CheckRefresh(ctx, throttleKey, ip); err != nil {
			return nil, e.rotateThrottled(ctx, throttleKey, ip, err)
		}
	}

	rec, err := e.store.Get(ctx, recordID.String())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, e.failRotate(ctx, "", "", recordID.String(), ip, "unknown record", ErrTokenNotFound)
		}
		return nil, mapStoreErr(err)
	}

	now := time.Now().UTC()

	if rejected := e.checkTokenBinding(rec, ip, userAgent, now); rejected {
		e.metricInc(MetricBindingRejected)
		e.recordSecurityEvent(ctx, EventBindingViolation, rec.UserID, ip, false, "presented context differs from mint context")
		e.recordFailure(ctx, rec.UserID, ip)
		e.emitAudit(ctx, auditEventBindingRejected, false, rec.UserID, rec.Family, rec.ID, ip, ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}

	secretHash := internal.EncodeSecretHash(internal.HashRefreshSecret(secret))
	status, err := e.store.MarkUsed(ctx, rec.ID, secretHash, now)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	switch status {
	case store.MarkNotFound:
		// Physically expired between Get and MarkUsed.
		return nil, e.failRotate(ctx, rec.UserID, rec.Family, rec.ID, ip, "unknown record", ErrTokenNotFound)
	case store.MarkSecretMismatch:
		return nil, e.failRotate(ctx, rec.UserID, rec.Family, rec.ID, ip, "secret mismatch", ErrTokenNotFound)
	case store.MarkExpired:
		return nil, e.failRotate(ctx, rec.UserID, rec.Family, rec.ID, ip, "refresh token expired", ErrTokenExpired)
	case store.MarkRevoked:
		return nil, e.failRotate(ctx, rec.UserID, rec.Family, rec.ID, ip, "refresh token revoked", ErrTokenRevoked)
	case store.MarkAlreadyUsed:
		return nil, e.handleReuse(ctx, rec, ip, now)
	case store.MarkRotated:
		return e.completeRotation(ctx, rec, throttleKey, ip, userAgent, now)
	default:
		return nil, fmt.Errorf("unexpected rotation status %d", status)
	}
}

// completeRotation runs on the winner's side of the mark-used race: mint the
// descendant record at version+1, sign a fresh access token, and enforce the
// family size cap.
func (e *Engine) completeRotation(ctx context.Context, parent *store.Record, throttleKey, ip, userAgent string, now time.Time) (*TokenPair, error) {
	childID, err := internal.NewRecordID()
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, err
	}
	childSecret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, err
	}
	jwtID := uuid.NewString()

	child := &store.Record{
		ID:          childID.String(),
		SecretHash:  internal.EncodeSecretHash(internal.HashRefreshSecret(childSecret)),
		JWTID:       jwtID,
		UserID:      parent.UserID,
		Family:      parent.Family,
		Version:     parent.Version + 1,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.config.Rotation.RefreshTTL),
		CreatedByIP: ip,
		UserAgent:   userAgent,
	}

	if err := e.store.Save(ctx, child, e.recordTTL()); err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, parent.UserID, parent.Family, parent.ID, ip, ErrStoreUnavailable, nil)
		return nil, mapStoreErr(err)
	}

	accessToken, accessExpiry, err := e.jwtManager.CreateAccess(parent.UserID, jwtID)
	if err != nil {
		_, _ = e.store.Revoke(ctx, child.ID, "issue_failed", ip, now)
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, parent.UserID, parent.Family, parent.ID, ip, err, nil)
		return nil, err
	}

	refreshToken, err := internal.EncodeRefreshToken(childID, childSecret)
	if err != nil {
		_, _ = e.store.Revoke(ctx, child.ID, "issue_failed", ip, now)
		e.metricInc(MetricRotateFailure)
		return nil, err
	}

	if err := e.enforceFamilyLimit(ctx, parent.Family, parent.UserID, ip, now); err != nil {
		// The rotation itself already succeeded; an over-cap family will be
		// trimmed on the next rotation instead.
		e.recordSecurityEvent(ctx, EventRotationFailed, parent.UserID, ip, false, "family limit enforcement failed")
	}

	if e.limiter != nil {
		_ = e.limiter.ResetRefresh(ctx, throttleKey, ip)
	}

	e.metricInc(MetricRotateSuccess)
	e.recordSecurityEvent(ctx, EventTokenRotated, parent.UserID, ip, true, "")
	e.emitAudit(ctx, auditEventRotateSuccess, true, parent.UserID, parent.Family, child.ID, ip, nil, func() map[string]string {
		return map[string]string{
			"parent_record": parent.ID,
			"version":       fmt.Sprintf("%d", child.Version),
		}
	})

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
		TokenType:    "Bearer",
	}, nil
}

// handleReuse runs on the loser's side: the presented record was already
// marked Used by an earlier call. A winning rotation that happened within the
// replay window means a benign concurrent retry; anything older is treated
// as a stolen-token replay and burns the entire family.
func (e *Engine) handleReuse(ctx context.Context, rec *store.Record, ip string, now time.Time) error {
	if !e.config.Rotation.EnableReplayProtection {
		return e.failRotate(ctx, rec.UserID, rec.Family, rec.ID, ip, "refresh token already used", ErrTokenReused)
	}

	// The snapshot from before MarkUsed predates the winner's write; re-read
	// to see the used_at the winner stamped. Used_at is set in the same
	// atomic script that makes losers observe AlreadyUsed, so it is always
	// visible here.
	fresh, err := e.store.Get(ctx, rec.ID)
	if err == nil && fresh.Used && !fresh.Revoked && now.Sub(fresh.UsedAt) <= e.config.Rotation.ReplayWindow {
		e.metricInc(MetricConcurrentRotation)
		e.recordSecurityEvent(ctx, EventConcurrentRotation, rec.UserID, ip, false, "lost mark-used race inside replay window")
		e.emitAudit(ctx, auditEventConcurrentRotation, false, rec.UserID, rec.Family, rec.ID, ip, ErrConcurrentRotation, nil)
		return ErrConcurrentRotation
	}

	family, err := e.store.FamilyRecords(ctx, rec.Family)
	if err != nil {
		return mapStoreErr(err)
	}

	revoked, revokeErr := e.revokeFamilyRecords(ctx, family, ReasonReplayDetected, ip, now)

	e.metricInc(MetricReuseDetected)
	e.metricInc(MetricFamilyRevoked)
	e.metricAdd(MetricRecordsRevoked, uint64(revoked))
	e.recordFailure(ctx, rec.UserID, ip)
	e.recordSecurityEvent(ctx, EventTokenReuse, rec.UserID, ip, false,
		fmt.Sprintf("family %s revoked, %d records", rec.Family, revoked))
	e.emitAudit(ctx, auditEventReuseDetected, false, rec.UserID, rec.Family, rec.ID, ip, ErrTokenReused, func() map[string]string {
		return map[string]string{"records_revoked": fmt.Sprintf("%d", revoked)}
	})

	if revokeErr != nil {
		// The breach verdict stands even when part of the cascade failed;
		// remaining records are caught on their next presentation.
		log.Printf("tokenguard: family revocation cascade incomplete: %v", revokeErr)
	}
	return ErrTokenReused
}

// enforceFamilyLimit revokes the oldest active records of a family once it
// grows past MaxFamilySize. Ordering is creation time, record ID as the tie
// break, so concurrent enforcers pick the same victims.
func (e *Engine) enforceFamilyLimit(ctx context.Context, family, userID, ip string, now time.Time) error {
	limit := e.config.Rotation.MaxFamilySize
	if limit <= 0 {
		return nil
	}

	records, err := e.store.FamilyRecords(ctx, family)
	if err != nil {
		return mapStoreErr(err)
	}

	active := records[:0]
	for _, r := range records {
		if r.IsActive(now) {
			active = append(active, r)
		}
	}
	if len(active) <= limit {
		return nil
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	excess := active[:len(active)-limit]
	revoked := 0
	for _, r := range excess {
		status, err := e.store.Revoke(ctx, r.ID, ReasonFamilyLimitExceeded, ip, now)
		if err != nil {
			return mapStoreErr(err)
		}
		if status == store.RevokeDone {
			revoked++
		}
	}

	if revoked > 0 {
		e.metricInc(MetricFamilyLimitEnforced)
		e.metricAdd(MetricRecordsRevoked, uint64(revoked))
		e.recordSecurityEvent(ctx, EventFamilyLimitEnforced, userID, ip, true,
			fmt.Sprintf("family %s trimmed to %d active records", family, limit))
		e.emitAudit(ctx, auditEventFamilyLimit, true, userID, family, "", ip, nil, func() map[string]string {
			return map[string]string{"records_revoked": fmt.Sprintf("%d", revoked)}
		})
	}

	return nil
}

func (e *Engine) checkTokenBinding(rec *store.Record, ip, userAgent string, now time.Time) bool {
	if !e.config.Security.EnableTokenBinding {
		return false
	}
	if now.Sub(rec.CreatedAt) >= e.config.Security.TokenBindingDuration {
		return false
	}

	if ip != "" && rec.CreatedByIP != "" && ip != rec.CreatedByIP {
		return true
	}
	if userAgent != "" && rec.UserAgent != "" && userAgent != rec.UserAgent {
		return true
	}
	return false
}

func (e *Engine) rotateThrottled(ctx context.Context, throttleKey, ip string, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricRotateRateLimited)
		e.recordSecurityEvent(ctx, EventRotationFailed, "", ip, false, "rotation rate limited")
		e.emitAudit(ctx, auditEventRotateRateLimited, false, "", "", throttleKey, ip, ErrRefreshRateLimited, nil)
		return ErrRefreshRateLimited
	}
	return mapStoreErr(err)
}

func (e *Engine) failRotate(ctx context.Context, userID, family, recordID, ip, detail string, cause error) error {
	if e.limiter != nil {
		if err := e.limiter.IncrementRefresh(ctx, recordID, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricRotateRateLimited)
		}
	}

	e.metricInc(MetricRotateFailure)
	e.recordFailure(ctx, userID, ip)
	e.recordSecurityEvent(ctx, EventRotationFailed, userID, ip, false, detail)
	e.emitAudit(ctx, auditEventRotateInvalid, false, userID, family, recordID, ip, cause, nil)

	return cause
}
