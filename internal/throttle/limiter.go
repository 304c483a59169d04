package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	combinedPrefix = "agt"
	originPrefix   = "agto"
	resendPrefix   = "agtr"
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration

	EnableOriginThrottle bool
	OriginMaxAttempts    int

	// MaxResends caps code resends per key within the cooldown window.
	// Zero disables the resend budget.
	MaxResends int
}

// Status is the counter state after a recorded failure.
type Status struct {
	Count       int
	LockedUntil time.Time
}

// Locked reports whether the counter rejects checks at now.
func (s Status) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Limiter enforces per-key attempt budgets using Redis hashes.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// recordScript increments the counter and arms the cooldown atomically.
// KEYS[1] counter; ARGV now_ms, threshold, cooldown_ms.
var recordScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local cooldown = tonumber(ARGV[3])
local vals = redis.call("HMGET", KEYS[1], "count", "until")
local count = tonumber(vals[1]) or 0
local untilMs = tonumber(vals[2]) or 0
if untilMs > 0 and now >= untilMs then
  count = 0
  untilMs = 0
end
count = count + 1
if count >= threshold and untilMs == 0 then
  untilMs = now + cooldown
end
redis.call("HSET", KEYS[1], "count", count, "until", untilMs)
local ttl = cooldown
if untilMs > now then
  ttl = untilMs - now
end
redis.call("PEXPIRE", KEYS[1], ttl)
return {count, untilMs}
`)

// Check rejects with *LimitedError when key or originKey is locked at now.
func (l *Limiter) Check(ctx context.Context, key, originKey string, now time.Time) error {
	if err := l.check(ctx, combinedPrefix+":"+key, l.config.MaxAttempts, now); err != nil {
		return err
	}
	if l.originEnabled(originKey) {
		return l.check(ctx, originPrefix+":"+originKey, l.config.OriginMaxAttempts, now)
	}
	return nil
}

// RecordFailure counts one failed attempt against key and originKey and
// returns the combined counter's state.
func (l *Limiter) RecordFailure(ctx context.Context, key, originKey string, now time.Time) (Status, error) {
	status, err := l.record(ctx, combinedPrefix+":"+key, l.config.MaxAttempts, now)
	if err != nil {
		return Status{}, err
	}
	if l.originEnabled(originKey) {
		if _, err := l.record(ctx, originPrefix+":"+originKey, l.config.OriginMaxAttempts, now); err != nil {
			return Status{}, err
		}
	}
	return status, nil
}

// CheckResend rejects with *LimitedError when key has used its resend
// budget. It is independent of the failure counter.
func (l *Limiter) CheckResend(ctx context.Context, key string, now time.Time) error {
	if l.config.MaxResends <= 0 {
		return nil
	}
	return l.check(ctx, resendPrefix+":"+key, l.config.MaxResends, now)
}

// RecordResend counts one delivered resend against key.
func (l *Limiter) RecordResend(ctx context.Context, key string, now time.Time) (Status, error) {
	if l.config.MaxResends <= 0 {
		return Status{}, nil
	}
	return l.record(ctx, resendPrefix+":"+key, l.config.MaxResends, now)
}

// Clear resets the combined and resend counters for key. The origin counter
// is left to expire with its window so one successful login cannot reset it.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	// Separate commands: the keys may live in different cluster slots.
	for _, k := range []string{combinedPrefix + ":" + key, resendPrefix + ":" + key} {
		if err := l.redis.Del(ctx, k).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Attempts returns the current combined count for key. Missing keys are zero.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	return l.count(ctx, combinedPrefix+":"+key)
}

// Resends returns the current resend count for key.
func (l *Limiter) Resends(ctx context.Context, key string) (int, error) {
	return l.count(ctx, resendPrefix+":"+key)
}

func (l *Limiter) count(ctx context.Context, key string) (int, error) {
	v, err := l.redis.HGet(ctx, key, "count").Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

func (l *Limiter) originEnabled(originKey string) bool {
	return l.config.EnableOriginThrottle && l.config.OriginMaxAttempts > 0 && originKey != ""
}

func (l *Limiter) check(ctx context.Context, key string, threshold int, now time.Time) error {
	vals, err := l.redis.HMGet(ctx, key, "count", "until").Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count := parseField(vals[0])
	untilMs := parseField(vals[1])
	if count < int64(threshold) || untilMs == 0 {
		return nil
	}

	until := time.UnixMilli(untilMs)
	if !now.Before(until) {
		return nil
	}
	return &LimitedError{RetryAfter: until.Sub(now)}
}

func (l *Limiter) record(ctx context.Context, key string, threshold int, now time.Time) (Status, error) {
	res, err := recordScript.Run(ctx, l.redis, []string{key},
		now.UnixMilli(),
		threshold,
		l.config.Cooldown.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Status{}, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	status := Status{Count: int(res[0])}
	if res[1] > 0 {
		status.LockedUntil = time.UnixMilli(res[1])
	}
	return status, nil
}

func parseField(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
