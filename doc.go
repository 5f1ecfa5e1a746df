// Package ideas provides the backend engine for a personal ideas
// manager: human session handling over Supabase auth, shadow agent
// identities with cached token lifecycles, and row-level-security
// scoped data access for both humans and agents.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// ideas is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (AgentSession, HumanSession,
// MetricsSnapshot, etc.). Coordination details (rate limiting,
// random identity material, RLS-scoped Postgres access) live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, raw HTTP clients, or ciphertext formats in
//     its public API.
//   - Perform I/O outside of Engine methods (construction via Builder
//     is allocation-only until Build).
//   - Import any sub-package that re-imports ideas (no import cycles).
//
// # Performance contract
//
// ResolveAgentSession is the hot path. A cache hit must complete
// without any network traffic; a miss is allowed one credential fetch
// plus one auth round-trip (two when a refresh falls back to a full
// sign-in).
package ideas
