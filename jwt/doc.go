// Package jwt implements access-token creation and validation for tokenguard.
//
// # Design
//
// Access tokens are standard JWTs signed with ed25519 (default) or HS256.
// Every token carries a unique jti claim that correlates it with the refresh
// token record minted alongside it; the blacklist is keyed by that jti.
//
// # Architecture boundaries
//
// This package owns signing, parsing, and structural claim validation.
// Blacklist consultation, rotation policy, and revocation live in the Engine
// and store.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import tokenguard or store.
//   - Decide whether a structurally valid token is still trusted.
package jwt
