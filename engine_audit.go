package tokenguard

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventIssueSuccess       = "issue_success"
	auditEventIssueFailure       = "issue_failure"
	auditEventRotateSuccess      = "rotate_success"
	auditEventRotateInvalid      = "rotate_invalid"
	auditEventRotateRateLimited  = "rotate_rate_limited"
	auditEventReuseDetected      = "refresh_reuse_detected"
	auditEventConcurrentRotation = "concurrent_rotation"
	auditEventBindingRejected    = "token_binding_rejected"
	auditEventFamilyRevoked      = "family_revoked"
	auditEventFamilyLimit        = "family_limit_enforced"
	auditEventBlacklistInsert    = "blacklist_insert"
	auditEventBlacklistHit       = "blacklist_hit"
	auditEventValidateFailure    = "validate_failure"
	auditEventUserCleanup        = "user_token_cleanup"
	auditEventSweepCompleted     = "sweep_completed"
)

// AuditErrorCode defines a public type used by tokenguard APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrTokenExpired  AuditErrorCode = "token_expired"
	auditErrTokenRevoked  AuditErrorCode = "token_revoked"
	auditErrTokenReused   AuditErrorCode = "token_reused"
	auditErrConcurrent    AuditErrorCode = "concurrent_rotation"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrBlacklisted   AuditErrorCode = "blacklisted"
	auditErrUnauthorized  AuditErrorCode = "unauthorized"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenReused):
		return auditErrTokenReused
	case errors.Is(err, ErrConcurrentRotation):
		return auditErrConcurrent
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrBlacklistedJWT):
		return auditErrBlacklisted
	case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	family string,
	recordID string,
	ip string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Family:    family,
		RecordID:  recordID,
		IP:        ip,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
