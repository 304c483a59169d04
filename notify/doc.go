// Package notify holds Notifier implementations that deliver emailed
// one-time codes for authgate, plus a pacing wrapper shared by the
// provider-backed ones.
package notify
