// Package recovery models the single-use recovery codes attached to an
// account's second factor.
//
// A [Set] is the unused-code collection. Codes are compared exactly: no case
// folding, trimming of inner characters or separator removal happens on the
// redemption path. Redemption is a single guarded mutation,
// [Set.RemoveIfPresent], so callers can express the read-modify-write around
// it as one compare-and-swap against the account store.
package recovery
