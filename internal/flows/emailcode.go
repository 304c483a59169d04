package flows

import (
	"crypto/subtle"
	"strings"
	"time"
)

// EmailCodeCheck is the challenge state needed to verify an emailed code.
type EmailCodeCheck struct {
	StoredHash [32]byte
	HasCode    bool
	ExpiresAt  time.Time
}

// CheckEmailCode reports whether submitted matches the stored digest and the
// code is still fresh at now. Both conditions are always evaluated so a wrong
// code and an expired code cost the same.
func CheckEmailCode(check EmailCodeCheck, submitted string, now time.Time, hash func(string) [32]byte) bool {
	submitted = strings.TrimSpace(submitted)
	if !check.HasCode || submitted == "" || hash == nil {
		return false
	}

	digest := hash(submitted)
	match := subtle.ConstantTimeCompare(digest[:], check.StoredHash[:])
	fresh := 0
	if !now.After(check.ExpiresAt) {
		fresh = 1
	}
	return match&fresh == 1
}
