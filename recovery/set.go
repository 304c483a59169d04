package recovery

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
)

// ErrDuplicateCode is returned when a Set would hold the same code twice.
var ErrDuplicateCode = errors.New("recovery: duplicate code")

// Set is an ordered, duplicate-free collection of unused recovery codes.
// The zero value is an empty set. A Set is not safe for concurrent mutation.
type Set struct {
	codes []string
}

// NewSet builds a Set from codes, preserving order.
func NewSet(codes []string) (*Set, error) {
	s := &Set{codes: make([]string, 0, len(codes))}
	for _, code := range codes {
		if code == "" {
			continue
		}
		if s.contains(code) {
			return nil, ErrDuplicateCode
		}
		s.codes = append(s.codes, code)
	}
	return s, nil
}

// Len returns the number of unused codes.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.codes)
}

// Codes returns a copy of the unused codes in order.
func (s *Set) Codes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// RemoveIfPresent removes code and reports whether it was present.
//
// Every entry is compared in constant time and the scan never exits early,
// so the time taken does not depend on the position of a match.
func (s *Set) RemoveIfPresent(code string) bool {
	if s == nil || code == "" {
		return false
	}

	idx := -1
	for i, candidate := range s.codes {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 && idx < 0 {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}

	s.codes = append(s.codes[:idx], s.codes[idx+1:]...)
	return true
}

func (s *Set) contains(code string) bool {
	for _, candidate := range s.codes {
		if candidate == code {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the set as a JSON array of strings.
func (s *Set) MarshalJSON() ([]byte, error) {
	if s == nil || s.codes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.codes)
}

// UnmarshalJSON decodes a JSON array of strings, rejecting duplicates.
func (s *Set) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	decoded, err := NewSet(codes)
	if err != nil {
		return err
	}
	s.codes = decoded.codes
	return nil
}
