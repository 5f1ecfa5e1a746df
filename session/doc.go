// Package session provides the in-memory agent session cache used by
// the engine's authentication hot path.
//
// # Lifetime
//
// The [Cache] is a lifecycle-scoped object: construct one per process
// in main, hand it to the engine builder, and let it die with the
// process. Entries are process-local by design; losing them only costs
// one extra password sign-in per user.
//
// # Architecture boundaries
//
// This package owns the [Cache] and the [Agent] model. It does NOT
// talk to the auth provider, decrypt credentials, or decide when a
// session must be refreshed; those responsibilities belong to the
// Engine.
//
// # What this package must NOT do
//
//   - Import the root engine package (no upward imports).
//   - Perform network calls of any kind.
//   - Store plaintext agent passwords in [Agent] fields.
package session
