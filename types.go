package tokenguard

import (
	"time"

	"github.com/secfold/tokenguard/store"
)

// RefreshTokenRecord is the persisted refresh-token record. Only the used and
// revoked flags (and their companion timestamps) change after creation.
type RefreshTokenRecord = store.Record

// TokenBlacklistEntry denylists a single access token by jti until the
// token's own natural expiry.
type TokenBlacklistEntry = store.BlacklistEntry

// SecurityEvent is an immutable risk-scored audit record of a
// security-relevant operation.
type SecurityEvent = store.SecurityEvent

// EventFilter narrows an [Engine.SecurityEvents] query.
type EventFilter = store.EventFilter

// Severity levels carried by [SecurityEvent].
const (
	// SeverityLow is an exported constant or variable used by the rotation engine.
	SeverityLow = "low"
	// SeverityMedium is an exported constant or variable used by the rotation engine.
	SeverityMedium = "medium"
	// SeverityHigh is an exported constant or variable used by the rotation engine.
	SeverityHigh = "high"
	// SeverityCritical is an exported constant or variable used by the rotation engine.
	SeverityCritical = "critical"
)

// Blacklist entry types carried by [TokenBlacklistEntry].
const (
	// BlacklistTypeLogout is an exported constant or variable used by the rotation engine.
	BlacklistTypeLogout = "logout"
	// BlacklistTypeBreach is an exported constant or variable used by the rotation engine.
	BlacklistTypeBreach = "breach"
	// BlacklistTypeAdminRevoke is an exported constant or variable used by the rotation engine.
	BlacklistTypeAdminRevoke = "admin-revoke"
)

// Revocation reasons written to [RefreshTokenRecord.RevokedReason].
const (
	// ReasonReplayDetected is an exported constant or variable used by the rotation engine.
	ReasonReplayDetected = "replay_detected"
	// ReasonFamilyLimitExceeded is an exported constant or variable used by the rotation engine.
	ReasonFamilyLimitExceeded = "family_limit_exceeded"
	// ReasonUserCleanup is an exported constant or variable used by the rotation engine.
	ReasonUserCleanup = "user_token_cleanup"
	// ReasonLogout is an exported constant or variable used by the rotation engine.
	ReasonLogout = "logout"
)

// TokenPair is returned by [Engine.Issue] and [Engine.Rotate]. RefreshToken
// is the only time the opaque secret exists outside the caller; the store
// keeps just its hash.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TokenType    string
}

// AccessResult is returned by [Engine.ValidateAccess]. It carries the
// authenticated user's ID and the token's jti after signature, expiry, and
// blacklist checks all passed.
type AccessResult struct {
	UserID string
	JWTID  string
}
