package tokenguard

import (
	"context"
	"testing"
)

func TestActiveTokenCountAndListing(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := engine.Issue(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.Issue(ctx, "u1", "", ""); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	count, err := engine.ActiveTokenCount(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveTokenCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 active tokens, got %d", count)
	}

	// Rotation retires the parent and mints a descendant; the count holds.
	if _, err := engine.Rotate(ctx, first.RefreshToken, "", ""); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	count, err = engine.ActiveTokenCount(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveTokenCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 active tokens after rotation, got %d", count)
	}

	infos, err := engine.ListUserTokens(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUserTokens failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 records including the used parent, got %d", len(infos))
	}
	used := 0
	for _, info := range infos {
		if info.RecordID == "" || info.Family == "" {
			t.Fatalf("incomplete token info %+v", info)
		}
		if info.Used {
			used++
		}
	}
	if used != 1 {
		t.Fatalf("expected exactly 1 used record, got %d", used)
	}
}

func TestHealthReportsRedis(t *testing.T) {
	engine, mr := newTestEngine(t, nil)
	ctx := context.Background()

	health := engine.Health(ctx)
	if !health.RedisAvailable {
		t.Fatal("expected healthy redis")
	}

	mr.Close()
	health = engine.Health(ctx)
	if health.RedisAvailable {
		t.Fatal("expected unhealthy redis after close")
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Security.EnableTokenBinding = true
		cfg.Blacklist.Enabled = false
	})

	report := engine.SecurityReport()
	if report.SigningAlgorithm != "ed25519" {
		t.Fatalf("unexpected signing algorithm %q", report.SigningAlgorithm)
	}
	if !report.RotationEnabled || !report.ReplayProtectionEnabled {
		t.Fatal("expected rotation and replay protection enabled")
	}
	if report.BlacklistingEnabled {
		t.Fatal("expected blacklisting disabled")
	}
	if !report.TokenBindingActive {
		t.Fatal("expected token binding active")
	}
	if report.MaxFamilySize != 5 {
		t.Fatalf("unexpected family size %d", report.MaxFamilySize)
	}

	var nilEngine *Engine
	if got := nilEngine.SecurityReport(); got.RotationEnabled {
		t.Fatal("nil engine must report zero values")
	}
}
