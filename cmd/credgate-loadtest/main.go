// Command credgate-loadtest hammers the authentication path against an
// in-memory credential store, reporting throughput and latency percentiles.
// Half the seeded accounts start on the legacy scheme, so the run also
// exercises the migration write under load.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credgate "github.com/varkas/credgate"
	"github.com/varkas/credgate/password"
	"github.com/varkas/credgate/store"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 10000, "total authentication attempts")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := credgate.DefaultConfig()
	// Floor-level hashing parameters: the run measures engine overhead, not
	// argon2 hardness.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Session.SigningMethod = "hs256"
	cfg.Session.PrivateKey = []byte("loadtest-loadtest-loadtest-32byt")
	cfg.RateLimit.Login = credgate.RateClassConfig{MaxAttempts: *ops + 1, Window: time.Hour}

	hasher, err := password.NewArgon2(password.Config{
		Memory: cfg.Password.Memory, Time: cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength, KeyLength: cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(1)
	}

	st := store.NewMemory()
	const secret = "L0adTest$ecret"
	legacyHash := password.NewLegacy().Hash(secret)
	secureHash, err := hasher.Hash(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts (half legacy)...\n", *accounts)
	for i := 0; i < *accounts; i++ {
		rec := &credgate.CredentialRecord{
			Identity: fmt.Sprintf("user%d@example.com", i),
			Active:   true,
		}
		if i%2 == 0 {
			rec.LegacyHash = legacyHash
		} else {
			rec.SecureHash = secureHash
			rec.Migrated = true
		}
		st.Seed(rec)
	}

	engine, err := credgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithStore(st).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("running %d authentications across %d workers...\n", *ops, *concurrency)

	var (
		wg        sync.WaitGroup
		opIndex   atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, *ops)
	)
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				i := opIndex.Add(1) - 1
				if i >= int64(*ops) {
					return
				}
				identity := fmt.Sprintf("user%d@example.com", rng.Intn(*accounts))
				opStart := time.Now()
				outcome, err := engine.Authenticate(ctx, identity, secret, false)
				latencies[i] = time.Since(opStart)
				if err != nil || outcome.Status != credgate.AuthAuthenticated {
					failures.Add(1)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
	pct := func(p float64) time.Duration {
		idx := int(float64(len(latencies)-1) * p)
		return latencies[idx]
	}

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("done in %v (%.0f ops/sec), %d failures\n",
		elapsed.Round(time.Millisecond), float64(*ops)/elapsed.Seconds(), failures.Load())
	fmt.Printf("latency p50=%v p95=%v p99=%v max=%v\n",
		pct(0.50), pct(0.95), pct(0.99), latencies[len(latencies)-1])
	fmt.Printf("migrations completed=%d race lost=%d\n",
		snapshot.Counters[credgate.MetricMigrationCompleted],
		snapshot.Counters[credgate.MetricMigrationRaceLost])
}
