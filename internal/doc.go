// Package internal contains helper utilities that are intentionally private to
// tokenguard, including the opaque refresh-token codec and secret hashing.
//
// # Token format
//
// Opaque base64url-encoded tokens packing a 16-byte record ID and a 32-byte
// cryptographic secret. The store never retains the secret in plaintext — only
// its SHA-256 hash.
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenguard API.
//   - Be imported by any package outside the tokenguard module.
//   - Access Redis or perform any I/O beyond crypto/rand.
package internal
