package tokenguard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/secfold/tokenguard/internal"
	"github.com/secfold/tokenguard/store"
)

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Issue mints a fresh access/refresh pair rooted in a brand-new token family
// at version 0. The refresh secret is returned exactly once; the store keeps
// only its hash.
func (e *Engine) Issue(ctx context.Context, userID, ip, userAgent string) (*TokenPair, error) {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, errors.New("empty user id")
	}

	recordID, err := internal.NewRecordID()
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return nil, err
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return nil, err
	}

	now := time.Now().UTC()
	jwtID := uuid.NewString()
	family := uuid.NewString()

	rec := &store.Record{
		ID:          recordID.String(),
		SecretHash:  internal.EncodeSecretHash(internal.HashRefreshSecret(secret)),
		JWTID:       jwtID,
		UserID:      userID,
		Family:      family,
		Version:     0,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.config.Rotation.RefreshTTL),
		CreatedByIP: ip,
		UserAgent:   userAgent,
	}

	if err := e.store.Save(ctx, rec, e.recordTTL()); err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, family, rec.ID, ip, ErrStoreUnavailable, nil)
		return nil, mapStoreErr(err)
	}

	accessToken, accessExpiry, err := e.jwtManager.CreateAccess(userID, jwtID)
	if err != nil {
		// The refresh record exists but its access token never will; take
		// the record back out of circulation.
		_, _ = e.store.Revoke(ctx, rec.ID, "issue_failed", ip, now)
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, family, rec.ID, ip, err, nil)
		return nil, err
	}

	refreshToken, err := internal.EncodeRefreshToken(recordID, secret)
	if err != nil {
		_, _ = e.store.Revoke(ctx, rec.ID, "issue_failed", ip, now)
		e.metricInc(MetricIssueFailure)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.recordSecurityEvent(ctx, EventTokenIssued, userID, ip, true, "")
	e.emitAudit(ctx, auditEventIssueSuccess, true, userID, family, rec.ID, ip, nil, nil)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
		TokenType:    "Bearer",
	}, nil
}
