// Package store implements the Redis-backed source of truth for refresh-token
// records, the JWT blacklist, and the security-event log.
//
// # Design
//
// Each refresh-token record is a Redis hash keyed by record ID, with
// per-family and per-user index sets for lineage scans. The status
// transitions that must pick exactly one winner under contention — marking a
// record used, marking it revoked — run as server-side Lua scripts, so Redis'
// single-threaded execution provides the conditional-write guarantee without
// client-side locking.
//
// Security events are appended to a Redis stream; risk-history counters are
// plain INCR keys with a trailing-window TTL.
//
// # Architecture boundaries
//
// This package owns persistence and atomic state transitions. It does not
// decide rotation policy: whether an already-used record means a breach or a
// benign race is the Engine's call.
//
// # What this package must NOT do
//
//   - Mint or parse tokens.
//   - Emit audit events or metrics.
//   - Cache record status in process memory.
package store
