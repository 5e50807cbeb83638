package internal

import (
	"testing"

	"github.com/google/uuid"
)

// FuzzDecodeRefreshToken exercises refresh token decoding with arbitrary strings.
// Goal: no panics; invalid inputs should return errors cleanly.
func FuzzDecodeRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	// Generate a valid token to use as seed.
	id, err := NewRecordID()
	if err == nil {
		secret, err := NewRefreshSecret()
		if err == nil {
			token, err := EncodeRefreshToken(id, secret)
			if err == nil {
				f.Add(token)
			}
		}
	}

	// Malformed base64.
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")
	f.Add("dG9vLXNob3J0")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic. Errors are fine for invalid inputs.
		recordID, secret, err := DecodeRefreshToken(input)
		if err != nil {
			return
		}

		reEncoded, err := EncodeRefreshToken(recordID, secret)
		if err != nil {
			t.Fatalf("re-encode of decoded token failed: %v", err)
		}

		id2, secret2, err := DecodeRefreshToken(reEncoded)
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if id2 != recordID {
			t.Errorf("roundtrip record ID mismatch: %q vs %q", id2, recordID)
		}
		if secret2 != secret {
			t.Error("roundtrip secret mismatch")
		}
	})
}

func TestEncodeRefreshTokenRoundtrip(t *testing.T) {
	id := uuid.New()
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	token, err := EncodeRefreshToken(id, secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}

	gotID, gotSecret, err := DecodeRefreshToken(token)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if gotID != id {
		t.Fatalf("record ID mismatch: %s vs %s", gotID, id)
	}
	if gotSecret != secret {
		t.Fatal("secret mismatch after roundtrip")
	}
}

func TestHashRefreshSecretStable(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	if EncodeSecretHash(HashRefreshSecret(secret)) != EncodeSecretHash(HashRefreshSecret(secret)) {
		t.Fatal("hash of identical secret differs between calls")
	}
}
