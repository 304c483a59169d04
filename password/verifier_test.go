package password

import (
	"encoding/base64"
	"errors"
	"testing"
)

func b64Padded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestVerifierRoutesByPrefix(t *testing.T) {
	v, err := NewVerifier(secureConfig())
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}

	argonHash, err := v.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	bcryptHash, err := NewBcrypt(4).Hash("correct horse battery")
	if err != nil {
		t.Fatalf("bcrypt Hash error: %v", err)
	}

	for name, hash := range map[string]string{"argon2id": argonHash, "bcrypt": bcryptHash} {
		ok, err := v.Verify("correct horse battery", hash)
		if err != nil || !ok {
			t.Fatalf("%s: expected match, ok=%v err=%v", name, ok, err)
		}
		ok, err = v.Verify("wrong horse battery", hash)
		if err != nil || ok {
			t.Fatalf("%s: expected mismatch without error, ok=%v err=%v", name, ok, err)
		}
	}
}

func TestVerifierRejectsUnknownScheme(t *testing.T) {
	v, _ := NewVerifier(secureConfig())

	if _, err := v.Verify("x", "$md5$abc"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestBcryptMalformedHash(t *testing.T) {
	if _, err := NewBcrypt(4).Verify("x", "$2a$broken"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
