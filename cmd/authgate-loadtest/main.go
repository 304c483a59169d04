package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/demo"
	"github.com/MrEthical07/authgate/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

type seededAccount struct {
	identifier string
	password   string
	totpSecret string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed per phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "logins per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := authgate.DefaultConfig()
	cfg.Encryption.Key = make([]byte, 32)
	// Cheap argon2 so the phases measure the engine, not the hash.
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	seeder, err := demo.NewSeeder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seeder: %v\n", err)
		os.Exit(1)
	}

	store := memory.New()
	fmt.Printf("seeding %d accounts per method...\n", *accounts)
	startSeed := time.Now()
	plain, err := seed(seeder, store, "plain", authgate.MethodNone, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	withTOTP, err := seed(seeder, store, "totp", authgate.MethodAuthenticator, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	run(ctx, client, store, cfg, plain, withTOTP, *ops, *concurrency)
}

func run(ctx context.Context, client redis.UniversalClient, store *memory.Store, cfg authgate.Config, plain, withTOTP []seededAccount, ops, concurrency int) {
	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	passwordStats := runPhase(ctx, plain, ops, concurrency, func(ctx context.Context, a seededAccount) error {
		_, err := engine.Login(ctx, authgate.LoginRequest{Identifier: a.identifier, Secret: a.password})
		return err
	})
	totpStats := runPhase(ctx, withTOTP, ops, concurrency, func(ctx context.Context, a seededAccount) error {
		code, err := totp.GenerateCode(a.totpSecret, time.Now())
		if err != nil {
			return err
		}
		res, err := engine.Login(ctx, authgate.LoginRequest{Identifier: a.identifier, Secret: a.password, Code: code})
		if err != nil {
			return err
		}
		if res.Status != authgate.StatusAuthenticated {
			return fmt.Errorf("unexpected status %d", res.Status)
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("password", passwordStats)
	printStats("password+totp", totpStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine counters: login_success=%d login_failure=%d second_factor_success=%d\n",
		snap.Counters[authgate.MetricLoginSuccess],
		snap.Counters[authgate.MetricLoginFailure],
		snap.Counters[authgate.MetricSecondFactorSuccess],
	)
}

func seed(seeder *demo.Seeder, store *memory.Store, prefix string, method authgate.Method, n int) ([]seededAccount, error) {
	out := make([]seededAccount, 0, n)
	for i := 0; i < n; i++ {
		identifier := fmt.Sprintf("%s-%d@load.test", prefix, i)
		a, creds, err := seeder.Account(fmt.Sprintf("%s-%d", prefix, i), identifier, "load-password-"+prefix, method)
		if err != nil {
			return nil, err
		}
		if _, err := store.Put(a); err != nil {
			return nil, err
		}
		out = append(out, seededAccount{identifier: identifier, password: creds.Password, totpSecret: creds.TOTPSecret})
	}
	return out, nil
}

func runPhase(ctx context.Context, accounts []seededAccount, ops, concurrency int, attempt func(context.Context, seededAccount) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				a := accounts[r.Intn(len(accounts))]
				// Distinct origins keep the per-origin counter out of the way.
				attemptCtx := authgate.WithClientIP(ctx, fmt.Sprintf("10.0.%d.%d", worker%256, i%256))
				t0 := time.Now()
				err := attempt(attemptCtx, a)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
