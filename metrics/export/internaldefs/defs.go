package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Logins authenticated without a second factor."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Logins rejected at the credential check."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Attempts rejected by the throttle."},
	{ID: authgate.MetricChallengeIssued, Name: "authgate_challenge_issued_total", Help: "Second-factor challenges issued."},
	{ID: authgate.MetricChallengeResent, Name: "authgate_challenge_resent_total", Help: "Email codes resent."},
	{ID: authgate.MetricDispatchFailed, Name: "authgate_dispatch_failed_total", Help: "Email code deliveries that failed."},
	{ID: authgate.MetricSecondFactorSuccess, Name: "authgate_second_factor_success_total", Help: "Successful second-factor verifications."},
	{ID: authgate.MetricSecondFactorFailure, Name: "authgate_second_factor_failure_total", Help: "Failed second-factor verifications."},
	{ID: authgate.MetricTOTPFallbackAccepted, Name: "authgate_totp_fallback_accepted_total", Help: "Authenticator codes accepted only by the widened window."},
	{ID: authgate.MetricRecoveryCodeUsed, Name: "authgate_recovery_code_used_total", Help: "Recovery codes redeemed."},
	{ID: authgate.MetricRecoveryCodeFailed, Name: "authgate_recovery_code_failed_total", Help: "Rejected recovery codes."},
	{ID: authgate.MetricRecoveryCodeConflict, Name: "authgate_recovery_code_conflict_total", Help: "Recovery-code swaps lost to a concurrent writer."},
	{ID: authgate.MetricChallengeInvalid, Name: "authgate_challenge_invalid_total", Help: "Submissions against unknown, expired or used challenges."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricLoginLatency, Name: "authgate_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix are the bounds in a form usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
