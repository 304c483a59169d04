package internal

import "testing"

// FuzzParseChallengeID feeds arbitrary strings to the challenge id parser.
// Accepted ids must re-encode to the same text.
func FuzzParseChallengeID(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAA")
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	if id, err := NewChallengeID(); err == nil {
		f.Add(id.String())
	}

	f.Fuzz(func(t *testing.T, s string) {
		id, err := ParseChallengeID(s)
		if err != nil {
			return
		}
		if id.String() != s {
			t.Fatalf("parse(%q) re-encodes to %q", s, id.String())
		}
	})
}
