package recovery

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	// DefaultCount is the number of codes issued when a second factor is enabled.
	DefaultCount = 8

	alphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	halfLength = 10
)

// ErrInvalidCount is returned by Generate for n <= 0.
var ErrInvalidCount = errors.New("recovery: code count must be > 0")

// Generate returns a Set of n fresh codes shaped "xxxxxxxxxx-xxxxxxxxxx".
func Generate(n int) (*Set, error) {
	return generate(n, cryptoRandomIndex)
}

func generate(n int, randomIndex func(int) (int, error)) (*Set, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}

	s := &Set{codes: make([]string, 0, n)}
	for len(s.codes) < n {
		code, err := newCode(randomIndex)
		if err != nil {
			return nil, err
		}
		if s.contains(code) {
			continue
		}
		s.codes = append(s.codes, code)
	}
	return s, nil
}

func newCode(randomIndex func(int) (int, error)) (string, error) {
	var b strings.Builder
	b.Grow(halfLength*2 + 1)
	for i := 0; i < halfLength*2; i++ {
		if i == halfLength {
			b.WriteByte('-')
		}
		n, err := randomIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n])
	}
	return b.String(), nil
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
