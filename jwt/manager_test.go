package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		AccessTTL:     15 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "tokenguard-test",
	}
}

func TestCreateParseRoundtrip(t *testing.T) {
	mgr, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, expiresAt, err := mgr.CreateAccess("user-7", "jti-abc")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expected future expiry")
	}

	claims, err := mgr.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-7" {
		t.Fatalf("unexpected uid %q", claims.UID)
	}
	if claims.ID != "jti-abc" {
		t.Fatalf("unexpected jti %q", claims.ID)
	}
	if claims.Issuer != "tokenguard-test" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestCreateAccessRejectsEmptyJTI(t *testing.T) {
	mgr, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, _, err := mgr.CreateAccess("user-7", ""); err == nil {
		t.Fatal("expected error for empty jwt id")
	}
	if _, _, err := mgr.CreateAccess("", "jti"); err == nil {
		t.Fatal("expected error for empty uid")
	}
}

func TestParseAccessRejectsTamperedToken(t *testing.T) {
	mgr, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, _, err := mgr.CreateAccess("user-7", "jti-abc")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := mgr.ParseAccess(tampered); err == nil {
		t.Fatal("expected tampered token to fail validation")
	}
}

func TestParseAccessRejectsWrongKey(t *testing.T) {
	mgr, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	other := hs256Config()
	other.PrivateKey = []byte("different-secret")
	otherMgr, err := NewManager(other)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, _, err := otherMgr.CreateAccess("user-7", "jti-abc")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := mgr.ParseAccess(token); err == nil {
		t.Fatal("expected cross-key token to fail validation")
	}
}

func TestEd25519Roundtrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	mgr, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, _, err := mgr.CreateAccess("user-9", "jti-ed")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	claims, err := mgr.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.ID != "jti-ed" {
		t.Fatalf("unexpected jti %q", claims.ID)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"excess leeway", func(c *Config) { c.Leeway = 3 * time.Minute }},
		{"missing hs256 key", func(c *Config) { c.PrivateKey = nil }},
		{"unknown method", func(c *Config) { c.SigningMethod = "rs256" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := hs256Config()
			tc.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Fatal("expected config rejection")
			}
		})
	}
}
