// Package rate implements Redis-backed fixed-window throttling for refresh
// rotation attempts.
//
// # Design
//
// Counters are plain Redis INCR keys with a cooldown TTL applied on the first
// hit in a window. Rotation attempts are throttled per token family and,
// optionally, per client IP.
//
// # What this package must NOT do
//
//   - Import tokenguard or any sibling package.
//   - Decide rotation policy; it only answers over/under budget.
package rate
