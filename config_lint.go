package authgate

import "time"

// LintWarning is a non-fatal configuration concern.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the list of warnings produced by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but weaken the engine. It never
// changes the config.
func (c Config) Lint() LintResult {
	var ws LintResult

	if c.TOTP.FallbackSkew >= 8 {
		ws = append(ws, LintWarning{
			Code:    "totp_fallback_wide",
			Message: "TOTP fallback window accepts codes four or more minutes from now",
		})
	}
	if c.Throttle.MaxAttempts > 10 {
		ws = append(ws, LintWarning{
			Code:    "throttle_lenient",
			Message: "more than 10 attempts allowed before cooldown",
		})
	}
	if !c.Throttle.EnableOriginThrottle {
		ws = append(ws, LintWarning{
			Code:    "origin_throttle_disabled",
			Message: "identifier spraying from one origin is only bounded per identifier",
		})
	}
	if c.EmailCode.TTL > 15*time.Minute {
		ws = append(ws, LintWarning{
			Code:    "email_code_ttl_long",
			Message: "emailed codes stay valid for more than 15 minutes",
		})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:    "audit_disabled",
			Message: "authentication events are not audited",
		})
	}

	return ws
}
