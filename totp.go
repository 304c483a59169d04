package authgate

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpVerifier validates authenticator codes with the configured window and
// an optional widened retry.
type totpVerifier struct {
	period       uint
	skew         uint
	fallbackSkew uint
	digits       otp.Digits
	algorithm    otp.Algorithm
}

func newTOTPVerifier(cfg TOTPConfig) *totpVerifier {
	v := &totpVerifier{
		period:       cfg.Period,
		skew:         cfg.Skew,
		fallbackSkew: cfg.FallbackSkew,
		digits:       otp.DigitsSix,
		algorithm:    otp.AlgorithmSHA1,
	}
	if cfg.Digits == 8 {
		v.digits = otp.DigitsEight
	}
	switch strings.ToUpper(cfg.Algorithm) {
	case "SHA256":
		v.algorithm = otp.AlgorithmSHA256
	case "SHA512":
		v.algorithm = otp.AlgorithmSHA512
	}
	return v
}

// verify reports whether code is valid for secret at now. widened is true
// when only the fallback window accepted it.
func (v *totpVerifier) verify(secret, code string, now time.Time) (ok bool, widened bool) {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false, false
	}

	if v.validate(secret, code, now, v.skew) {
		return true, false
	}
	if v.fallbackSkew > v.skew && v.validate(secret, code, now, v.fallbackSkew) {
		return true, true
	}
	return false, false
}

func (v *totpVerifier) validate(secret, code string, now time.Time, skew uint) bool {
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    v.period,
		Skew:      skew,
		Digits:    v.digits,
		Algorithm: v.algorithm,
	})
	return err == nil && ok
}

// generateCode returns the code for secret at t.
func (v *totpVerifier) generateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), totp.ValidateOpts{
		Period:    v.period,
		Digits:    v.digits,
		Algorithm: v.algorithm,
	})
}
