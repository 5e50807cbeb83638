package tokenguard

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidateDefaultsWithKeys(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "zero access ttl",
			mutate:  func(c *Config) { c.JWT.AccessTTL = 0 },
			wantSub: "AccessTTL",
		},
		{
			name:    "unknown signing method",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantSub: "signing method",
		},
		{
			name:    "ed25519 without private key",
			mutate:  func(c *Config) { c.JWT.PrivateKey = nil },
			wantSub: "PrivateKey",
		},
		{
			name:    "negative leeway",
			mutate:  func(c *Config) { c.JWT.Leeway = -time.Second },
			wantSub: "Leeway",
		},
		{
			name:    "zero refresh ttl",
			mutate:  func(c *Config) { c.Rotation.RefreshTTL = 0 },
			wantSub: "RefreshTTL",
		},
		{
			name: "refresh ttl below access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
				c.Rotation.RefreshTTL = time.Minute
			},
			wantSub: "exceed",
		},
		{
			name:    "zero family size",
			mutate:  func(c *Config) { c.Rotation.MaxFamilySize = 0 },
			wantSub: "MaxFamilySize",
		},
		{
			name: "replay protection without window",
			mutate: func(c *Config) {
				c.Rotation.EnableReplayProtection = true
				c.Rotation.ReplayWindow = 0
			},
			wantSub: "ReplayWindow",
		},
		{
			name: "events without failure window",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.FailureWindow = 0
			},
			wantSub: "FailureWindow",
		},
		{
			name: "cleanup without interval",
			mutate: func(c *Config) {
				c.Cleanup.Enabled = true
				c.Cleanup.Interval = 0
			},
			wantSub: "Interval",
		},
		{
			name: "throttle without attempts",
			mutate: func(c *Config) {
				c.Security.EnableRefreshThrottle = true
				c.Security.MaxRefreshAttempts = 0
			},
			wantSub: "MaxRefreshAttempts",
		},
		{
			name: "binding without duration",
			mutate: func(c *Config) {
				c.Security.EnableTokenBinding = true
				c.Security.TokenBindingDuration = 0
			},
			wantSub: "TokenBindingDuration",
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantSub: "BufferSize",
		},
		{
			name:    "empty redis prefix",
			mutate:  func(c *Config) { c.Store.RedisPrefix = "" },
			wantSub: "RedisPrefix",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantSub, err)
			}
		})
	}
}

func TestConfigHS256Validation(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.PublicKey = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected hs256 config to validate, got %v", err)
	}

	cfg.JWT.PrivateKey = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for hs256 without key")
	}
}
