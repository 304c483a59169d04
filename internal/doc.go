// Package internal holds helpers private to authgate: challenge ids, numeric
// codes and code hashing.
//
// # Sub-packages
//
//   - throttle: Redis-backed attempt counters and lockout
//   - stores: challenge state in Redis
//   - flows: pure orchestration of recovery-code consumption and email-code checks
//   - config: environment loading for the demo server
//   - httpapi: JSON HTTP transport for the demo server
//   - demo: seeded accounts for the demo server and load generator
package internal
