package tokenguard

// Security event types recorded by the engine. Exposed so callers can build
// [EventFilter] queries without string literals.
const (
	// EventTokenIssued is an exported constant or variable used by the rotation engine.
	EventTokenIssued = "token_issued"
	// EventTokenRotated is an exported constant or variable used by the rotation engine.
	EventTokenRotated = "token_rotated"
	// EventRotationFailed is an exported constant or variable used by the rotation engine.
	EventRotationFailed = "rotation_failed"
	// EventTokenReuse is an exported constant or variable used by the rotation engine.
	EventTokenReuse = "token_reuse_detected"
	// EventConcurrentRotation is an exported constant or variable used by the rotation engine.
	EventConcurrentRotation = "concurrent_rotation"
	// EventFamilyRevoked is an exported constant or variable used by the rotation engine.
	EventFamilyRevoked = "family_revoked"
	// EventFamilyLimitEnforced is an exported constant or variable used by the rotation engine.
	EventFamilyLimitEnforced = "family_limit_enforced"
	// EventTokenBlacklisted is an exported constant or variable used by the rotation engine.
	EventTokenBlacklisted = "token_blacklisted"
	// EventBlacklistRejected is an exported constant or variable used by the rotation engine.
	EventBlacklistRejected = "blacklisted_token_rejected"
	// EventBindingViolation is an exported constant or variable used by the rotation engine.
	EventBindingViolation = "token_binding_violation"
	// EventUserCleanup is an exported constant or variable used by the rotation engine.
	EventUserCleanup = "user_token_cleanup"
)

// Base risk by event type. History raises these; breach events ignore
// history entirely and pin to the top of the scale.
var riskBase = map[string]float64{
	EventTokenIssued:         0.05,
	EventTokenRotated:        0.05,
	EventRotationFailed:      0.25,
	EventConcurrentRotation:  0.15,
	EventFamilyRevoked:       0.55,
	EventFamilyLimitEnforced: 0.15,
	EventTokenBlacklisted:    0.45,
	EventBlacklistRejected:   0.55,
	EventBindingViolation:    0.65,
	EventUserCleanup:         0.1,
}

const (
	riskHistoryStep    = 0.05
	riskHistoryCeiling = 0.35
	investigateAtScore = 0.9
)

// riskScore is a pure function of the event type and the trailing-window
// failure history for the involved user and IP. Replay/breach events are
// pinned to 1.0 regardless of history.
func riskScore(eventType string, userFailures, ipFailures int64) float64 {
	if eventType == EventTokenReuse {
		return 1.0
	}

	score, ok := riskBase[eventType]
	if !ok {
		score = 0.2
	}

	history := float64(userFailures+ipFailures) * riskHistoryStep
	if history > riskHistoryCeiling {
		history = riskHistoryCeiling
	}
	score += history

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

func severityForScore(score float64) string {
	switch {
	case score >= 0.9:
		return SeverityCritical
	case score >= 0.7:
		return SeverityHigh
	case score >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func requiresInvestigation(eventType string, score float64) bool {
	return eventType == EventTokenReuse || score >= investigateAtScore
}
