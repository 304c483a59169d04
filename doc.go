// Package authgate turns an identifier+secret submission into either an
// authenticated account or a pending second-factor challenge, and verifies
// that challenge through one of three methods: authenticator TOTP, emailed
// one-time code, or single-use recovery code.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Flow
//
//	Login ──► Authenticated
//	  │
//	  └─────► ChallengeRequired{method, challenge id}
//	                │
//	                ├── VerifySecondFactor ──► Authenticated
//	                │         └── any failure: challenge destroyed, attempt counted
//	                └── ResendCode (email only)
//
// Every rejected submission is counted against a throttle key derived from the
// case-folded identifier and the caller's origin (see [WithClientIP]). Five
// failures lock the key for the configured cooldown.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// result types and the collaborator interfaces ([AccountStore], [Notifier],
// [Clock]). Throttle counters and challenge records live in Redis behind
// internal/ packages and are never exported.
//
// # What this package must NOT do
//
//   - Issue sessions, cookies or tokens. Authenticated is terminal here.
//   - Render or format email. The [Notifier] receives only a code and its TTL.
//   - Log one-time codes, recovery codes, secrets or shared TOTP keys.
package authgate
