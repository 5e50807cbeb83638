package tokenguard

import "time"

// SecurityReport defines a public type used by tokenguard APIs.
//
// SecurityReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityReport struct {
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	RotationEnabled         bool
	ReplayProtectionEnabled bool
	ReplayWindow            time.Duration
	MaxFamilySize           int
	BlacklistingEnabled     bool
	TokenBindingActive      bool
	RefreshThrottleActive   bool
	EventsActive            bool
	CleanupActive           bool
	AuditActive             bool
	MetricsActive           bool
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm:        e.config.JWT.SigningMethod,
		AccessTTL:               e.config.JWT.AccessTTL,
		RefreshTTL:              e.config.Rotation.RefreshTTL,
		RotationEnabled:         e.config.Rotation.Enabled,
		ReplayProtectionEnabled: e.config.Rotation.EnableReplayProtection,
		ReplayWindow:            e.config.Rotation.ReplayWindow,
		MaxFamilySize:           e.config.Rotation.MaxFamilySize,
		BlacklistingEnabled:     e.config.Blacklist.Enabled,
		TokenBindingActive:      e.config.Security.EnableTokenBinding,
		RefreshThrottleActive:   e.config.Security.EnableRefreshThrottle,
		EventsActive:            e.config.Events.Enabled,
		CleanupActive:           e.config.Cleanup.Enabled,
		AuditActive:             e.config.Audit.Enabled,
		MetricsActive:           e.config.Metrics.Enabled,
	}
}
