package authgate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/internal/throttle"
	"github.com/MrEthical07/authgate/recovery"
	"github.com/MrEthical07/authgate/seal"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testPassword   = "correct-password-123"
	testTOTPSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
)

var testEpoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	address string
	code    string
	ttl     time.Duration
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	fail error
	// hang, when set, blocks SendCode until closed regardless of ctx.
	hang chan struct{}
}

func (n *captureNotifier) SendCode(_ context.Context, address, code string, ttl time.Duration) error {
	n.mu.Lock()
	hang := n.hang
	n.mu.Unlock()
	if hang != nil {
		<-hang
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentCode{address: address, code: code, ttl: ttl})
	return nil
}

func (n *captureNotifier) setFail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = err
}

func (n *captureNotifier) setHang(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hang = ch
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *captureNotifier) last(t testing.TB) sentCode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a dispatched code")
	}
	return n.sent[len(n.sent)-1]
}

// testAccountStore is a minimal in-package AccountStore.
type testAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	swaps    int
}

func newTestAccountStore() *testAccountStore {
	return &testAccountStore{accounts: map[string]*Account{}}
}

func (s *testAccountStore) put(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.accounts[a.ID] = &cp
}

func (s *testAccountStore) GetAccountByIdentifier(_ context.Context, tenantID, identifier string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.TenantID == tenantID && strings.EqualFold(a.Identifier, identifier) {
			return *a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *testAccountStore) GetAccountByID(_ context.Context, tenantID, accountID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return Account{}, ErrAccountNotFound
	}
	return *a, nil
}

func (s *testAccountStore) SwapRecoveryCodes(_ context.Context, tenantID, accountID, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return false, ErrAccountNotFound
	}
	if a.SealedRecoveryCodes != expected {
		return false, nil
	}
	a.SealedRecoveryCodes = next
	s.swaps++
	return true, nil
}

func (s *testAccountStore) get(t testing.TB, id string) Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %s missing", id)
	}
	return *a
}

type testHarness struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	clock    *fakeClock
	notifier *captureNotifier
	store    *testAccountStore
	sealer   *seal.Sealer
	config   Config
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Encryption.Key = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

func newTestHarness(t testing.TB, mutate func(*Config)) *testHarness {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	h := &testHarness{
		mr:       mr,
		rdb:      rdb,
		clock:    &fakeClock{now: testEpoch},
		notifier: &captureNotifier{},
		store:    newTestAccountStore(),
		config:   cfg,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(h.store).
		WithNotifier(h.notifier).
		WithClock(h.clock).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h.engine = engine

	sealer, err := seal.New(cfg.Encryption.Key)
	if err != nil {
		t.Fatalf("seal.New failed: %v", err)
	}
	h.sealer = sealer

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return h
}

type accountOpts struct {
	method        Method
	recoveryCodes []string
	unconfirmed   bool
	noSecret      bool
	tenantID      string
}

func (h *testHarness) addAccount(t testing.TB, id, identifier string, opts accountOpts) Account {
	t.Helper()

	hash, err := h.engine.verifier.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	a := Account{
		ID:           id,
		TenantID:     "0",
		Identifier:   identifier,
		Email:        identifier,
		PasswordHash: hash,
		Method:       opts.method,
	}
	if opts.tenantID != "" {
		a.TenantID = opts.tenantID
	}
	if opts.method != MethodNone && !opts.unconfirmed {
		confirmed := testEpoch.Add(-24 * time.Hour)
		a.TwoFactorConfirmedAt = &confirmed
	}
	if opts.method == MethodAuthenticator && !opts.noSecret {
		sealed, err := h.sealer.SealString(testTOTPSecret)
		if err != nil {
			t.Fatalf("SealString failed: %v", err)
		}
		a.SealedTOTPSecret = sealed
	}
	if len(opts.recoveryCodes) > 0 {
		set, err := recovery.NewSet(opts.recoveryCodes)
		if err != nil {
			t.Fatalf("NewSet failed: %v", err)
		}
		sealed, err := recovery.Seal(h.sealer, set)
		if err != nil {
			t.Fatalf("recovery.Seal failed: %v", err)
		}
		a.SealedRecoveryCodes = sealed
	}

	h.store.put(a)
	return a
}

func (h *testHarness) remainingRecoveryCodes(t testing.TB, id string) int {
	t.Helper()
	set, err := recovery.Open(h.sealer, h.store.get(t, id).SealedRecoveryCodes)
	if errors.Is(err, recovery.ErrNotConfigured) {
		return 0
	}
	if err != nil {
		t.Fatalf("recovery.Open failed: %v", err)
	}
	return set.Len()
}

func (h *testHarness) challengeKeys() []string {
	var out []string
	for _, k := range h.mr.Keys() {
		if strings.HasPrefix(k, h.config.Challenge.RedisPrefix+":") {
			out = append(out, k)
		}
	}
	return out
}

func (h *testHarness) attempts(t testing.TB, identifier string) int {
	t.Helper()
	n, err := h.engine.limiter.Attempts(context.Background(), throttle.Key("0", identifier, ""))
	if err != nil {
		t.Fatalf("Attempts failed: %v", err)
	}
	return n
}

func (h *testHarness) resends(t testing.TB, identifier string) int {
	t.Helper()
	n, err := h.engine.limiter.Resends(context.Background(), throttle.Key("0", identifier, ""))
	if err != nil {
		t.Fatalf("Resends failed: %v", err)
	}
	return n
}

func (h *testHarness) totpCode(t testing.TB, offsetSteps int) string {
	t.Helper()
	at := h.clock.Now().Add(time.Duration(offsetSteps) * 30 * time.Second)
	code, err := h.engine.totp.generateCode(testTOTPSecret, at)
	if err != nil {
		t.Fatalf("generateCode failed: %v", err)
	}
	return code
}

func (h *testHarness) login(t testing.TB, identifier string) *LoginResult {
	t.Helper()
	res, err := h.engine.Login(context.Background(), LoginRequest{Identifier: identifier, Secret: testPassword})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res
}
