// Package rate provides Redis-backed rate limit keys, errors, and
// limiter behavior for security-sensitive session workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit.
// The refresh cooldown uses SET NX with TTL instead, so the first hit
// in a window succeeds and everything else waits out the TTL.
// Key prefixes:
//   - al:  login per-user
//   - ali: login per-IP
//   - ar:  refresh cooldown per-key
//   - aq:  AI query per-user
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the Engine).
//   - Be imported outside this module.
package rate
