package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secfold/tokenguard/internal"
	"github.com/secfold/tokenguard/store"
)

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Revoke is the logout path: the presented refresh token identifies its
// family, and the whole family is revoked so no sibling or descendant
// survives the logout.
func (e *Engine) Revoke(ctx context.Context, refreshToken, ip string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	recordID, _, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}

	rec, err := e.store.Get(ctx, recordID.String())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return mapStoreErr(err)
	}

	_, err = e.RevokeFamily(ctx, rec.Family, ReasonLogout, ip)
	return err
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Every non-revoked, non-expired record in the family is revoked, including
// already-used ones, and each record's access token jti is blacklisted for
// the remainder of that token's lifetime. The count of records this call
// actually flipped is returned, which makes repeated invocations observable
// no-ops.
func (e *Engine) RevokeFamily(ctx context.Context, family, reason, revokedByIP string) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	if family == "" {
		return 0, errors.New("empty family id")
	}
	if reason == "" {
		reason = ReasonLogout
	}

	records, err := e.store.FamilyRecords(ctx, family)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	if len(records) == 0 {
		return 0, ErrFamilyNotFound
	}

	now := time.Now().UTC()
	revoked, err := e.revokeFamilyRecords(ctx, records, reason, revokedByIP, now)
	if err != nil {
		return revoked, err
	}

	userID := records[0].UserID

	e.metricInc(MetricFamilyRevoked)
	e.metricAdd(MetricRecordsRevoked, uint64(revoked))
	e.recordSecurityEvent(ctx, EventFamilyRevoked, userID, revokedByIP, true,
		fmt.Sprintf("family %s: %d records revoked, reason %s", family, revoked, reason))
	e.emitAudit(ctx, auditEventFamilyRevoked, true, userID, family, "", revokedByIP, nil, func() map[string]string {
		return map[string]string{
			"reason":          reason,
			"records_revoked": fmt.Sprintf("%d", revoked),
		}
	})

	return revoked, nil
}

// revokeFamilyRecords flips every revocable record in the given set and
// blacklists its paired access token. Expired and already-revoked records are
// skipped by the store-side conditional write, so the returned count reflects
// only this call's work.
func (e *Engine) revokeFamilyRecords(ctx context.Context, records []*store.Record, reason, revokedByIP string, now time.Time) (int, error) {
	revoked := 0
	for _, rec := range records {
		status, err := e.store.Revoke(ctx, rec.ID, reason, revokedByIP, now)
		if err != nil {
			return revoked, mapStoreErr(err)
		}
		if status != store.RevokeDone {
			continue
		}
		revoked++

		if err := e.blacklistRecordJWT(ctx, rec, reason, now); err != nil {
			return revoked, err
		}
	}
	return revoked, nil
}

// blacklistRecordJWT denylists the access token minted alongside a refresh
// record. The entry expires when the access token itself would have, so the
// blacklist never outlives the tokens it guards.
func (e *Engine) blacklistRecordJWT(ctx context.Context, rec *store.Record, reason string, now time.Time) error {
	if !e.config.Blacklist.Enabled || rec.JWTID == "" {
		return nil
	}

	entry := &store.BlacklistEntry{
		JWTID:     rec.JWTID,
		UserID:    rec.UserID,
		CreatedAt: now,
		ExpiresAt: rec.CreatedAt.Add(e.config.JWT.AccessTTL),
		Reason:    reason,
		Type:      blacklistTypeForReason(reason),
	}

	if err := e.store.PutBlacklist(ctx, entry); err != nil {
		return mapStoreErr(err)
	}
	e.metricInc(MetricBlacklistInsert)
	return nil
}

func blacklistTypeForReason(reason string) string {
	switch reason {
	case ReasonReplayDetected:
		return BlacklistTypeBreach
	case ReasonLogout, ReasonUserCleanup:
		return BlacklistTypeLogout
	default:
		return BlacklistTypeAdminRevoke
	}
}

// BlacklistToken describes the blacklisttoken operation and its observable behavior.
//
// BlacklistToken may return an error when input validation, dependency calls, or security checks fail.
// BlacklistToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// BlacklistToken is the administrative path for denylisting a single access
// token by jti, independent of any refresh record. Permanent entries never
// expire and survive until explicitly removed from Redis.
func (e *Engine) BlacklistToken(ctx context.Context, jwtID, userID, reason string, permanent bool) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if !e.config.Blacklist.Enabled {
		return ErrBlacklistingDisabled
	}
	if jwtID == "" {
		return errors.New("empty jwt id")
	}

	now := time.Now().UTC()
	entry := &store.BlacklistEntry{
		JWTID:     jwtID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.JWT.AccessTTL),
		Reason:    reason,
		Type:      BlacklistTypeAdminRevoke,
		Permanent: permanent,
	}

	if err := e.store.PutBlacklist(ctx, entry); err != nil {
		return mapStoreErr(err)
	}

	e.metricInc(MetricBlacklistInsert)
	e.recordSecurityEvent(ctx, EventTokenBlacklisted, userID, "", true, reason)
	e.emitAudit(ctx, auditEventBlacklistInsert, true, userID, "", "", "", nil, func() map[string]string {
		return map[string]string{"jwt_id": jwtID, "reason": reason}
	})

	return nil
}
