// Package flows contains pure-function orchestrators for the multi-step parts
// of second-factor verification.
//
// Each flow function accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies, which keeps the Engine thin
// and lets the retry and comparison logic be tested with plain closures.
//
// The package must not import authgate (import cycle) and must not perform
// I/O directly.
package flows
