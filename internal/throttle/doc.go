// Package throttle implements the Redis-backed attempt counters that guard
// credential and second-factor submissions.
//
// # Counter semantics
//
// Each key holds a hash {count, until}. Failures increment count; when count
// first reaches the threshold, until is set to now+cooldown. While
// now < until every check on the key is rejected, whatever the credentials.
// A failure recorded after until has passed starts a fresh window. Success
// deletes the key. "now" is always supplied by the caller so the engine's
// clock governs every decision.
//
// Key prefixes:
//   - agt:  identifier+origin (combined)
//   - agto: origin only
//
// # What this package must NOT do
//
//   - Decide which errors count as failures (the engine does that).
//   - Be imported outside the authgate module.
package throttle
