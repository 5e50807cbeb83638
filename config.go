package tokenguard

import (
	"errors"
	"time"
)

// Config defines a public type used by tokenguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Rotation  RotationConfig
	Blacklist BlacklistConfig
	Events    EventsConfig
	Cleanup   CleanupConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Store     StoreConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by tokenguard APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
}

/*
====================================
ROTATION CONFIG
====================================
*/

// RotationConfig defines a public type used by tokenguard APIs.
//
// ReplayWindow bounds the benign-race heuristic: a loser of the mark-used
// race is treated as a concurrent retry, not a breach, when the winning
// descendant record was created within this window.
type RotationConfig struct {
	Enabled                bool
	RefreshTTL             time.Duration
	MaxFamilySize          int
	EnableReplayProtection bool
	ReplayWindow           time.Duration
}

// BlacklistConfig defines a public type used by tokenguard APIs.
//
// BlacklistConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BlacklistConfig struct {
	Enabled bool
}

// EventsConfig defines a public type used by tokenguard APIs.
//
// FailureWindow is the trailing window over which per-user and per-IP
// failure history feeds risk scoring.
type EventsConfig struct {
	Enabled       bool
	FailureWindow time.Duration
}

// CleanupConfig defines a public type used by tokenguard APIs.
//
// RetentionMargin keeps expired records visible for forensics before the
// sweeper removes them.
type CleanupConfig struct {
	Enabled         bool
	Interval        time.Duration
	RetentionMargin time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by tokenguard APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	EnableRefreshThrottle bool
	EnableIPThrottle      bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
	EnableTokenBinding    bool
	TokenBindingDuration  time.Duration
}

// AuditConfig defines a public type used by tokenguard APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by tokenguard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// StoreConfig defines a public type used by tokenguard APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix string
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
		},
		Rotation: RotationConfig{
			Enabled:                true,
			RefreshTTL:             30 * 24 * time.Hour,
			MaxFamilySize:          5,
			EnableReplayProtection: true,
			ReplayWindow:           500 * time.Millisecond,
		},
		Blacklist: BlacklistConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			Enabled:       true,
			FailureWindow: 15 * time.Minute,
		},
		Cleanup: CleanupConfig{
			Enabled:         true,
			Interval:        time.Hour,
			RetentionMargin: 24 * time.Hour,
		},
		Security: SecurityConfig{
			EnableRefreshThrottle: false,
			EnableIPThrottle:      false,
			MaxRefreshAttempts:    30,
			RefreshCooldown:       time.Minute,
			EnableTokenBinding:    false,
			TokenBindingDuration:  10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			RedisPrefix: "tg",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Rotation
	if c.Rotation.RefreshTTL <= 0 {
		return errors.New("Rotation RefreshTTL must be > 0")
	}
	if c.Rotation.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Rotation RefreshTTL must exceed JWT AccessTTL")
	}
	if c.Rotation.MaxFamilySize <= 0 {
		return errors.New("Rotation MaxFamilySize must be > 0")
	}
	if c.Rotation.ReplayWindow < 0 {
		return errors.New("Rotation ReplayWindow must be >= 0")
	}
	if c.Rotation.EnableReplayProtection && c.Rotation.ReplayWindow == 0 {
		return errors.New("Rotation ReplayWindow must be > 0 when replay protection is enabled")
	}

	// Events
	if c.Events.Enabled && c.Events.FailureWindow <= 0 {
		return errors.New("Events FailureWindow must be > 0 when events are enabled")
	}

	// Cleanup
	if c.Cleanup.Enabled {
		if c.Cleanup.Interval <= 0 {
			return errors.New("Cleanup Interval must be > 0")
		}
		if c.Cleanup.RetentionMargin < 0 {
			return errors.New("Cleanup RetentionMargin must be >= 0")
		}
	}

	// Security
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0 when throttling is enabled")
		}
		if c.Security.RefreshCooldown <= 0 {
			return errors.New("Security RefreshCooldown must be > 0 when throttling is enabled")
		}
	}
	if c.Security.EnableTokenBinding && c.Security.TokenBindingDuration <= 0 {
		return errors.New("Security TokenBindingDuration must be > 0 when token binding is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}

	return nil
}
