package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// MinKeyLength is the shortest accepted key passphrase in bytes.
const MinKeyLength = 32

var (
	// ErrKeyTooShort is returned by [New] for keys under [MinKeyLength] bytes.
	ErrKeyTooShort = errors.New("seal: key must be at least 32 bytes")
	// ErrMalformed is returned by [Sealer.Open] when the input is not a sealed value.
	ErrMalformed = errors.New("seal: malformed sealed value")
	// ErrDecrypt is returned by [Sealer.Open] when authentication fails.
	ErrDecrypt = errors.New("seal: decryption failed")
)

// Sealer seals and opens short secrets. A Sealer is safe for concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

// New derives an AES-256 key from key with SHA-256 and returns a Sealer.
func New(key []byte) (*Sealer, error) {
	if len(key) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	sum := sha256.Sum256(key)

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext and returns the encoded sealed value.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// SealString is Seal for string input.
func (s *Sealer) SealString(plaintext string) (string, error) {
	return s.Seal([]byte(plaintext))
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrMalformed
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// OpenString is Open returning a string.
func (s *Sealer) OpenString(sealed string) (string, error) {
	plaintext, err := s.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
