// Package internal contains helper utilities that are intentionally
// private to this module, including secure random generation and the
// agent email derivation rule.
//
// # Sub-packages
//
//   - pgrls: pgx pool construction and RLS-scoped read transactions
//   - rate: Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public engine API.
//   - Be imported by any package outside this module.
package internal
