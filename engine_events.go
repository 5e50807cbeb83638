package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/secfold/tokenguard/internal/rate"
	"github.com/secfold/tokenguard/store"
)

func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrRedisUnavailable) || errors.Is(err, rate.ErrRedisUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// SecurityEvents describes the securityevents operation and its observable behavior.
//
// SecurityEvents may return an error when input validation, dependency calls, or security checks fail.
// SecurityEvents does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityEvents(ctx context.Context, filter EventFilter) ([]SecurityEvent, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	events, err := e.store.Events(ctx, filter)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return events, nil
}

// MarkEventProcessed describes the markeventprocessed operation and its observable behavior.
//
// MarkEventProcessed may return an error when input validation, dependency calls, or security checks fail.
// MarkEventProcessed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MarkEventProcessed(ctx context.Context, eventID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if eventID == "" {
		return errors.New("empty event id")
	}

	return mapStoreErr(e.store.MarkEventProcessed(ctx, eventID))
}

// recordSecurityEvent appends a risk-scored event to the security stream.
// Recording is best-effort: a write failure is counted and logged, never
// surfaced, so a broken event stream cannot block token operations.
func (e *Engine) recordSecurityEvent(ctx context.Context, eventType, userID, ip string, success bool, detail string) {
	if e == nil || e.store == nil || !e.config.Events.Enabled {
		return
	}

	userFailures, ipFailures, err := e.store.FailureCounts(ctx, userID, ip)
	if err != nil {
		// Scoring degrades to the event-type base when counters are
		// unreadable; the event itself still gets recorded.
		userFailures, ipFailures = 0, 0
	}

	score := riskScore(eventType, userFailures, ipFailures)

	event := &SecurityEvent{
		EventType:             eventType,
		Severity:              severityForScore(score),
		UserID:                userID,
		IP:                    ip,
		Timestamp:             time.Now().UTC(),
		Success:               success,
		RiskScore:             score,
		RequiresInvestigation: requiresInvestigation(eventType, score),
		Detail:                detail,
	}

	if _, err := e.store.AppendEvent(ctx, event); err != nil {
		e.metricInc(MetricEventWriteFailed)
		log.Printf("tokenguard: security event write failed: %v", err)
		return
	}
	e.metricInc(MetricEventRecorded)
}

// recordFailure bumps the trailing-window failure counters feeding risk
// scores. Best-effort for the same reason recordSecurityEvent is.
func (e *Engine) recordFailure(ctx context.Context, userID, ip string) {
	if e == nil || e.store == nil || !e.config.Events.Enabled {
		return
	}
	if err := e.store.IncrFailure(ctx, userID, ip, e.config.Events.FailureWindow); err != nil {
		log.Printf("tokenguard: failure counter update failed: %v", err)
	}
}
