package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	refreshSecretSize   = 32
	refreshTokenRawSize = 16 + refreshSecretSize
)

// NewRecordID returns a fresh random record identifier. Record IDs double as
// family and blacklist correlation keys, so they use the same UUID space.
func NewRecordID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeSecretHash renders a secret hash in the form persisted by the store.
func EncodeSecretHash(hash [32]byte) string {
	return base64.RawStdEncoding.EncodeToString(hash[:])
}

func EncodeRefreshToken(recordID uuid.UUID, secret [refreshSecretSize]byte) (string, error) {
	var raw [refreshTokenRawSize]byte
	copy(raw[:16], recordID[:])
	copy(raw[16:], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func DecodeRefreshToken(token string) (uuid.UUID, [refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, secret, err
	}
	if len(raw) != refreshTokenRawSize {
		return uuid.Nil, secret, errors.New("invalid refresh token size")
	}

	var id uuid.UUID
	copy(id[:], raw[:16])
	copy(secret[:], raw[16:])

	return id, secret, nil
}
