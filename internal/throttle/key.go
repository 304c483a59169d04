package throttle

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentifier case-folds identifier and strips combining marks so
// "Ä@x.com", "ä@x.com" and "a@x.com" share one counter.
func NormalizeIdentifier(identifier string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(identifier))
	if err != nil {
		stripped = strings.TrimSpace(identifier)
	}
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(stripped)
}

// Key derives the combined identifier+origin counter key.
func Key(tenantID, identifier, origin string) string {
	return digest(tenantID, NormalizeIdentifier(identifier), origin)
}

// OriginKey derives the origin-only counter key. Empty origin yields "".
func OriginKey(tenantID, origin string) string {
	if origin == "" {
		return ""
	}
	return digest(tenantID, origin)
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
