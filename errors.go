package tokenguard

import "errors"

var (
	// ErrTokenNotFound is an exported constant or variable used by the rotation engine.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenExpired is an exported constant or variable used by the rotation engine.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrTokenRevoked is an exported constant or variable used by the rotation engine.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrTokenReused is an exported constant or variable used by the rotation engine.
	ErrTokenReused = errors.New("refresh token reuse detected")
	// ErrConcurrentRotation is an exported constant or variable used by the rotation engine.
	ErrConcurrentRotation = errors.New("concurrent rotation, retry")
	// ErrInvalidToken is an exported constant or variable used by the rotation engine.
	ErrInvalidToken = errors.New("invalid token")
	// ErrBlacklistedJWT is an exported constant or variable used by the rotation engine.
	ErrBlacklistedJWT = errors.New("access token blacklisted")
	// ErrUnauthorized is an exported constant or variable used by the rotation engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshRateLimited is an exported constant or variable used by the rotation engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrRotationDisabled is an exported constant or variable used by the rotation engine.
	ErrRotationDisabled = errors.New("token rotation disabled")
	// ErrBlacklistingDisabled is an exported constant or variable used by the rotation engine.
	ErrBlacklistingDisabled = errors.New("token blacklisting disabled")
	// ErrFamilyNotFound is an exported constant or variable used by the rotation engine.
	ErrFamilyNotFound = errors.New("token family not found")
	// ErrEngineNotReady is an exported constant or variable used by the rotation engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable is an exported constant or variable used by the rotation engine.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// PublicError collapses an internal rotation failure into the generic shape
// safe to return to a caller. Every invalid-token condition maps to
// [ErrInvalidToken] so an attacker cannot distinguish expired from replayed
// from unknown; [ErrConcurrentRotation] passes through because "try again"
// leaks nothing, and rate limiting passes through for backoff hints.
func PublicError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConcurrentRotation):
		return ErrConcurrentRotation
	case errors.Is(err, ErrRefreshRateLimited):
		return ErrRefreshRateLimited
	case errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenReused),
		errors.Is(err, ErrInvalidToken):
		return ErrInvalidToken
	default:
		return err
	}
}
