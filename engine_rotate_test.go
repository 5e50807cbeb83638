package tokenguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/secfold/tokenguard/internal"
	"github.com/secfold/tokenguard/store"
)

func TestIssueAndRotateHappyPath(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u1", "198.51.100.7", "test-agent")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be populated")
	}
	if pair.TokenType != "Bearer" {
		t.Fatalf("unexpected token type %q", pair.TokenType)
	}

	rotated, err := engine.Rotate(ctx, pair.RefreshToken, "198.51.100.7", "test-agent")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}
	if rotated.AccessToken == pair.AccessToken {
		t.Fatal("rotation must mint a new access token")
	}

	result, err := engine.ValidateAccess(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if result.UserID != "u1" {
		t.Fatalf("unexpected user id %q", result.UserID)
	}

	// Chain continues from the rotated token.
	if _, err := engine.Rotate(ctx, rotated.RefreshToken, "198.51.100.7", "test-agent"); err != nil {
		t.Fatalf("second rotation failed: %v", err)
	}
}

func TestRotateMalformedToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	_, err := engine.Rotate(context.Background(), "not-a-token", "", "")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRotateUnknownRecord(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	recordID, err := internal.NewRecordID()
	if err != nil {
		t.Fatalf("NewRecordID failed: %v", err)
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	token, err := internal.EncodeRefreshToken(recordID, secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}

	_, err = engine.Rotate(context.Background(), token, "", "")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRotateSecretMismatch(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	recordID, _, err := internal.DecodeRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	wrongSecret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	forged, err := internal.EncodeRefreshToken(recordID, wrongSecret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}

	if _, err := engine.Rotate(ctx, forged, "", ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for wrong secret, got %v", err)
	}

	// The real token is untouched by the forgery attempt.
	if _, err := engine.Rotate(ctx, pair.RefreshToken, "", ""); err != nil {
		t.Fatalf("legitimate rotation failed after forgery attempt: %v", err)
	}
}

func TestRotateExpiredToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	now := time.Now().UTC()

	token := seedRecord(t, engine, &store.Record{
		JWTID:     "jti-expired",
		UserID:    "u1",
		Family:    "fam-expired",
		Version:   0,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})

	_, err := engine.Rotate(context.Background(), token, "", "")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRotateRevokedToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	token := seedRecord(t, engine, &store.Record{
		JWTID:     "jti-revoked",
		UserID:    "u1",
		Family:    "fam-revoked",
		Version:   0,
		ExpiresAt: now.Add(time.Hour),
	})

	recordID, _, err := internal.DecodeRefreshToken(token)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if _, err := engine.store.Revoke(ctx, recordID.String(), ReasonLogout, "", now); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if _, err := engine.Rotate(ctx, token, "", ""); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestRotateReplayRevokesFamilyAndBlacklists(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Rotation.ReplayWindow = time.Millisecond
	})
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "victim", "203.0.113.9", "agent")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rotated, err := engine.Rotate(ctx, pair.RefreshToken, "203.0.113.9", "agent")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// Past the replay window the second presentation is theft, not a retry.
	time.Sleep(20 * time.Millisecond)

	if _, err := engine.Rotate(ctx, pair.RefreshToken, "203.0.113.66", "agent"); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}

	// The descendant minted by the legitimate rotation is burned with the
	// rest of the family.
	if _, err := engine.Rotate(ctx, rotated.RefreshToken, "203.0.113.9", "agent"); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for descendant, got %v", err)
	}

	// And its access token is rejected via the blacklist.
	if _, err := engine.ValidateAccess(ctx, rotated.AccessToken); !errors.Is(err, ErrBlacklistedJWT) {
		t.Fatalf("expected ErrBlacklistedJWT, got %v", err)
	}

	events, err := engine.SecurityEvents(ctx, EventFilter{EventType: EventTokenReuse})
	if err != nil {
		t.Fatalf("SecurityEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 reuse event, got %d", len(events))
	}
	ev := events[0]
	if ev.RiskScore != 1.0 {
		t.Fatalf("reuse risk score must be pinned to 1.0, got %v", ev.RiskScore)
	}
	if ev.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %q", ev.Severity)
	}
	if !ev.RequiresInvestigation {
		t.Fatal("reuse event must require investigation")
	}
}

func TestRotateDisabled(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Rotation.Enabled = false
	})

	_, err := engine.Rotate(context.Background(), "anything", "", "")
	if !errors.Is(err, ErrRotationDisabled) {
		t.Fatalf("expected ErrRotationDisabled, got %v", err)
	}
}

func TestRotateFamilyLimitTrimsOldest(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Rotation.MaxFamilySize = 3
	})
	ctx := context.Background()
	now := time.Now().UTC()

	const family = "fam-crowded"
	var newest string
	for v := 0; v < 5; v++ {
		token := seedRecord(t, engine, &store.Record{
			JWTID:     "jti-crowd-" + string(rune('a'+v)),
			UserID:    "u1",
			Family:    family,
			Version:   v,
			CreatedAt: now.Add(time.Duration(v-10) * time.Minute),
			ExpiresAt: now.Add(time.Hour),
		})
		newest = token
	}

	if _, err := engine.Rotate(ctx, newest, "", ""); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	records, err := engine.store.FamilyRecords(ctx, family)
	if err != nil {
		t.Fatalf("FamilyRecords failed: %v", err)
	}

	active := 0
	trimmed := 0
	for _, r := range records {
		if r.IsActive(time.Now().UTC()) {
			active++
		}
		if r.RevokedReason == ReasonFamilyLimitExceeded {
			trimmed++
		}
	}
	if active != 3 {
		t.Fatalf("expected 3 active records after trim, got %d", active)
	}
	if trimmed == 0 {
		t.Fatal("expected at least one record revoked for the family limit")
	}
}

func TestRotateThrottleKicksInAfterRepeatedFailures(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Security.EnableRefreshThrottle = true
		cfg.Security.MaxRefreshAttempts = 2
		cfg.Security.RefreshCooldown = time.Minute
	})
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	recordID, _, err := internal.DecodeRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	wrongSecret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	forged, err := internal.EncodeRefreshToken(recordID, wrongSecret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := engine.Rotate(ctx, forged, "", ""); !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("attempt %d: expected ErrTokenNotFound, got %v", i, err)
		}
	}

	if _, err := engine.Rotate(ctx, forged, "", ""); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}
}

func TestRotateTokenBindingRejectsChangedContext(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Security.EnableTokenBinding = true
		cfg.Security.TokenBindingDuration = time.Hour
	})
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u1", "198.51.100.7", "agent-a")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := engine.Rotate(ctx, pair.RefreshToken, "198.51.100.99", "agent-a"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for changed IP, got %v", err)
	}

	// Matching context still rotates.
	if _, err := engine.Rotate(ctx, pair.RefreshToken, "198.51.100.7", "agent-a"); err != nil {
		t.Fatalf("Rotate with bound context failed: %v", err)
	}
}
