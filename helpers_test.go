package tokenguard

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/secfold/tokenguard/internal"
	"github.com/secfold/tokenguard/store"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	// The background sweeper is exercised explicitly; keep it out of the
	// default test engine.
	cfg.Cleanup.Enabled = false
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		mr.Close()
	})

	return engine, mr
}

// seedRecord persists a record with a fresh ID and secret, returning the
// opaque refresh token that resolves to it. Tests use it to construct states
// Issue would never produce, like already-expired records.
func seedRecord(t *testing.T, e *Engine, rec *store.Record) string {
	t.Helper()

	recordID, err := internal.NewRecordID()
	if err != nil {
		t.Fatalf("NewRecordID failed: %v", err)
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	rec.ID = recordID.String()
	rec.SecretHash = internal.EncodeSecretHash(internal.HashRefreshSecret(secret))
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if err := e.store.Save(context.Background(), rec, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err := internal.EncodeRefreshToken(recordID, secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}
	return token
}
