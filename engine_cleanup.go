package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/secfold/tokenguard/store"
)

// CleanupUserTokens describes the cleanupusertokens operation and its observable behavior.
//
// CleanupUserTokens may return an error when input validation, dependency calls, or security checks fail.
// CleanupUserTokens does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// CleanupUserTokens revokes a user's oldest active refresh tokens across all
// of the user's families until at most maxToKeep remain. The trimmed tokens
// are revoked, not deleted, so the records stay visible for forensics until
// the sweeper retires them.
func (e *Engine) CleanupUserTokens(ctx context.Context, userID string, maxToKeep int) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, errors.New("empty user id")
	}
	if maxToKeep < 0 {
		return 0, errors.New("maxToKeep must be >= 0")
	}

	records, err := e.store.UserRecords(ctx, userID)
	if err != nil {
		return 0, mapStoreErr(err)
	}

	now := time.Now().UTC()
	active := records[:0]
	for _, r := range records {
		if r.IsActive(now) {
			active = append(active, r)
		}
	}
	if len(active) <= maxToKeep {
		return 0, nil
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	excess := active[:len(active)-maxToKeep]
	revoked := 0
	for _, r := range excess {
		status, err := e.store.Revoke(ctx, r.ID, ReasonUserCleanup, "", now)
		if err != nil {
			return revoked, mapStoreErr(err)
		}
		if status == store.RevokeDone {
			revoked++
		}
	}

	if revoked > 0 {
		e.metricAdd(MetricRecordsRevoked, uint64(revoked))
		e.recordSecurityEvent(ctx, EventUserCleanup, userID, "", true,
			fmt.Sprintf("%d oldest tokens revoked, %d kept", revoked, maxToKeep))
		e.emitAudit(ctx, auditEventUserCleanup, true, userID, "", "", "", nil, func() map[string]string {
			return map[string]string{"records_revoked": fmt.Sprintf("%d", revoked)}
		})
	}

	return revoked, nil
}

// SweepExpired describes the sweepexpired operation and its observable behavior.
//
// SweepExpired may return an error when input validation, dependency calls, or security checks fail.
// SweepExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// SweepExpired physically removes records whose expiry lies further back than
// the retention margin, together with their index memberships. The background
// sweeper calls this on its interval; it is also safe to run on demand.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.store.SweepExpired(ctx, time.Now().UTC(), e.config.Cleanup.RetentionMargin)

	e.metricInc(MetricSweepRuns)
	e.metricAdd(MetricSweepRecordsPruned, uint64(removed))
	e.emitAudit(ctx, auditEventSweepCompleted, err == nil, "", "", "", "", mapStoreErr(err), func() map[string]string {
		return map[string]string{"records_pruned": fmt.Sprintf("%d", removed)}
	})

	if err != nil {
		return removed, mapStoreErr(err)
	}
	return removed, nil
}
