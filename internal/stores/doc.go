// Package stores persists the short-lived challenge records that bind a
// password-verified login attempt to its pending second factor.
//
// # Design
//
// Records are versioned, binary-encoded values in Redis with a TTL. A record
// is consumed with GETDEL, so two verification requests racing on the same
// challenge can never both observe it. Resend rewrites the code under
// WATCH/MULTI with bounded retry and keeps the record's remaining TTL.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenge
// records. It does NOT generate codes, enforce rate limits, or decide
// whether a submission is valid.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package.
//   - Store plaintext one-time codes or account secrets.
package stores
