package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/recovery"
)

var (
	errNotReady      = errors.New("not ready")
	errNotConfigured = errors.New("not configured")
	errInvalid       = errors.New("invalid")
	errConflict      = errors.New("conflict")
	errMisconfigured = errors.New("misconfigured")
	errUnavailable   = errors.New("unavailable")
)

// plainStore keeps the collection as a comma-joined string so tests can
// exercise the swap loop without encryption.
type plainStore struct {
	mu     sync.Mutex
	value  string
	swaps  int
	forced int
}

func (s *plainStore) load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *plainStore) swap(_ context.Context, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forced > 0 {
		s.forced--
		return false, nil
	}
	if s.value != expected {
		return false, nil
	}
	s.value = next
	s.swaps++
	return true, nil
}

func openPlain(sealed string) (*recovery.Set, error) {
	if sealed == "" {
		return nil, recovery.ErrNotConfigured
	}
	return recovery.NewSet(strings.Split(sealed, ","))
}

func sealPlain(set *recovery.Set) (string, error) {
	return strings.Join(set.Codes(), ","), nil
}

func testRecoveryDeps(store *plainStore) RecoveryDeps {
	return RecoveryDeps{
		MaxSwapRetries: 4,
		LoadSealed:     store.load,
		Open:           openPlain,
		Seal:           sealPlain,
		Swap:           store.swap,
		Errors: RecoveryErrors{
			EngineNotReady:   errNotReady,
			NotConfigured:    errNotConfigured,
			Invalid:          errInvalid,
			Conflict:         errConflict,
			Misconfigured:    errMisconfigured,
			StoreUnavailable: errUnavailable,
		},
	}
}

func TestConsumeRecoveryCodeRemovesExactlyOne(t *testing.T) {
	store := &plainStore{value: "aaaa-1111,bbbb-2222,cccc-3333"}
	left, err := RunConsumeRecoveryCode(context.Background(), store.value, "bbbb-2222", testRecoveryDeps(store))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 codes left, got %d", left)
	}
	if store.value != "aaaa-1111,cccc-3333" {
		t.Fatalf("unexpected stored value %q", store.value)
	}

	_, err = RunConsumeRecoveryCode(context.Background(), store.value, "bbbb-2222", testRecoveryDeps(store))
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected replay to be invalid, got %v", err)
	}
}

func TestConsumeRecoveryCodeNotConfigured(t *testing.T) {
	store := &plainStore{}
	_, err := RunConsumeRecoveryCode(context.Background(), "", "aaaa-1111", testRecoveryDeps(store))
	if !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestConsumeRecoveryCodeRetriesLostSwap(t *testing.T) {
	store := &plainStore{value: "aaaa-1111,bbbb-2222", forced: 2}
	left, err := RunConsumeRecoveryCode(context.Background(), store.value, "aaaa-1111", testRecoveryDeps(store))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if left != 1 || store.swaps != 1 {
		t.Fatalf("expected one swap and one code left, got swaps=%d left=%d", store.swaps, left)
	}
}

func TestConsumeRecoveryCodeGivesUpAfterRetries(t *testing.T) {
	store := &plainStore{value: "aaaa-1111,bbbb-2222", forced: 10}
	_, err := RunConsumeRecoveryCode(context.Background(), store.value, "aaaa-1111", testRecoveryDeps(store))
	if !errors.Is(err, errConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConsumeRecoveryCodeConcurrentSingleWinner(t *testing.T) {
	store := &plainStore{value: "aaaa-1111,bbbb-2222,cccc-3333"}
	initial := store.value

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		invalids int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := RunConsumeRecoveryCode(context.Background(), initial, "cccc-3333", testRecoveryDeps(store))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, errInvalid):
				invalids++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || invalids != 7 {
		t.Fatalf("expected 1 win and 7 invalid, got wins=%d invalid=%d", wins, invalids)
	}
}

func TestConsumeRecoveryCodeMissingDeps(t *testing.T) {
	_, err := RunConsumeRecoveryCode(context.Background(), "x", "y", RecoveryDeps{Errors: RecoveryErrors{EngineNotReady: errNotReady}})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestCheckEmailCode(t *testing.T) {
	hash := func(code string) [32]byte {
		var out [32]byte
		copy(out[:], code)
		return out
	}
	expires := time.Unix(1_700_000_300, 0)
	check := EmailCodeCheck{StoredHash: hash("482913"), HasCode: true, ExpiresAt: expires}

	if !CheckEmailCode(check, "482913", expires.Add(-time.Second), hash) {
		t.Fatal("expected fresh matching code to pass")
	}
	if !CheckEmailCode(check, " 482913 ", expires, hash) {
		t.Fatal("expected surrounding whitespace to be ignored")
	}
	if CheckEmailCode(check, "482913", expires.Add(time.Second), hash) {
		t.Fatal("expected expired code to fail")
	}
	if CheckEmailCode(check, "482914", expires.Add(-time.Second), hash) {
		t.Fatal("expected wrong code to fail")
	}
	if CheckEmailCode(EmailCodeCheck{ExpiresAt: expires}, "482913", expires, hash) {
		t.Fatal("expected challenge without code to fail")
	}
}
