package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
	maxWatchRetries         = 4
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeBackend  = errors.New("challenge backend unavailable")
	ErrChallengeCorrupt  = errors.New("challenge record corrupt")
)

// Challenge is the persisted state of one login attempt awaiting a second factor.
type Challenge struct {
	Method        uint8
	Remember      bool
	Resends       uint16
	CreatedAt     int64 // unix ms
	CodeExpiresAt int64 // unix ms, zero when no code was issued
	CodeHash      [32]byte
	AccountID     string
	TenantID      string
	ThrottleKey   string
	OriginKey     string
}

// HasCode reports whether an emailed code is attached.
func (c *Challenge) HasCode() bool {
	return c != nil && c.CodeExpiresAt > 0
}

// ChallengeStore keeps challenge records in Redis.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "agc"
	}
	return &ChallengeStore{redis: redisClient, prefix: prefix}
}

func (s *ChallengeStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

// Save writes record under challengeID with ttl, replacing any previous value.
func (s *ChallengeStore) Save(ctx context.Context, challengeID string, record *Challenge, ttl time.Duration) error {
	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Get reads a record without consuming it.
func (s *ChallengeStore) Get(ctx context.Context, challengeID string) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return decodeChallenge(data)
}

// Take reads and deletes a record in one step. Only one caller can take a
// given challenge.
func (s *ChallengeStore) Take(ctx context.Context, challengeID string) (*Challenge, error) {
	data, err := s.redis.GetDel(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return decodeChallenge(data)
}

// Delete removes a record and reports whether it existed.
func (s *ChallengeStore) Delete(ctx context.Context, challengeID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// ReplaceCode swaps the attached code for a new one, keeping the record's
// remaining TTL. It returns the updated record.
func (s *ChallengeStore) ReplaceCode(
	ctx context.Context,
	challengeID string,
	codeHash [32]byte,
	expiresAt time.Time,
) (*Challenge, error) {
	key := s.key(challengeID)

	for i := 0; i < maxWatchRetries; i++ {
		var updated *Challenge
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			ttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				return redis.Nil
			}

			record, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			record.CodeHash = codeHash
			record.CodeExpiresAt = expiresAt.UnixMilli()
			record.Resends++

			encoded, err := encodeChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			if err != nil {
				return err
			}
			updated = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeCorrupt) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return updated, nil
	}

	return nil, fmt.Errorf("%w: too much contention", ErrChallengeBackend)
}

func encodeChallenge(record *Challenge) ([]byte, error) {
	if record == nil {
		return nil, ErrChallengeCorrupt
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(record.Method)
	if record.Remember {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	for _, v := range []any{record.Resends, record.CreatedAt, record.CodeExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	buf.Write(record.CodeHash[:])

	for _, s := range []string{record.AccountID, record.TenantID, record.ThrottleKey, record.OriginKey} {
		if len(s) > 65535 {
			return nil, errors.New("challenge field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(s))); err != nil {
			return nil, err
		}
		buf.WriteString(s)
	}

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != challengeRecordVersion1 {
		return nil, ErrChallengeCorrupt
	}

	record := &Challenge{}
	if record.Method, err = reader.ReadByte(); err != nil {
		return nil, ErrChallengeCorrupt
	}
	remember, err := reader.ReadByte()
	if err != nil {
		return nil, ErrChallengeCorrupt
	}
	record.Remember = remember == 1

	for _, v := range []any{&record.Resends, &record.CreatedAt, &record.CodeExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, v); err != nil {
			return nil, ErrChallengeCorrupt
		}
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, ErrChallengeCorrupt
	}

	for _, dst := range []*string{&record.AccountID, &record.TenantID, &record.ThrottleKey, &record.OriginKey} {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, ErrChallengeCorrupt
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, ErrChallengeCorrupt
		}
		*dst = string(raw)
	}

	if reader.Len() != 0 {
		return nil, ErrChallengeCorrupt
	}
	return record, nil
}
