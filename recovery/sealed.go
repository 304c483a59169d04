package recovery

import (
	"encoding/json"
	"errors"
)

// ErrNotConfigured is returned by Open when no codes are stored.
var ErrNotConfigured = errors.New("recovery: no codes configured")

// Sealer is the encryption boundary used for the stored collection.
// *seal.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

// Seal encodes s as JSON and encrypts it.
func Seal(sealer Sealer, s *Set) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return sealer.Seal(data)
}

// Open decrypts a stored collection. An empty sealed value or an empty
// collection both yield ErrNotConfigured.
func Open(sealer Sealer, sealed string) (*Set, error) {
	if sealed == "" {
		return nil, ErrNotConfigured
	}
	data, err := sealer.Open(sealed)
	if err != nil {
		return nil, err
	}

	s := &Set{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, ErrNotConfigured
	}
	return s, nil
}
