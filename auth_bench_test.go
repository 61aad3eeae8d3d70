package credgate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/varkas/credgate/password"
)

func newBenchEngine(b *testing.B, seedSecure bool) (*Engine, *mockStore) {
	b.Helper()

	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.RateLimit.Login.MaxAttempts = 1 << 30
	cfg.Lockout.Threshold = 1 << 30

	st := newMockStore()
	if seedSecure {
		hasher, err := password.NewArgon2(password.Config{
			Memory: cfg.Password.Memory, Time: cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength, KeyLength: cfg.Password.KeyLength,
		})
		if err != nil {
			b.Fatalf("NewArgon2: %v", err)
		}
		secureHash, err := hasher.Hash("B3nch$ecret")
		if err != nil {
			b.Fatalf("Hash: %v", err)
		}
		st.seed(&CredentialRecord{
			Identity: "bench", SecureHash: secureHash, Migrated: true, Active: true,
		})
	} else {
		st.seed(&CredentialRecord{
			Identity:   "bench",
			LegacyHash: password.NewLegacy().Hash("B3nch$ecret"),
			Active:     true,
		})
	}

	engine, err := New().WithConfig(cfg).WithRedis(client).WithStore(st).Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	b.Cleanup(engine.Close)

	return engine, st
}

func BenchmarkAuthenticateSecure(b *testing.B) {
	engine, _ := newBenchEngine(b, true)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		outcome, err := engine.Authenticate(ctx, "bench", "B3nch$ecret", false)
		if err != nil || outcome.Status != AuthAuthenticated {
			b.Fatalf("authenticate: %v %v", outcome, err)
		}
	}
}

func BenchmarkAuthenticateRejected(b *testing.B) {
	engine, _ := newBenchEngine(b, true)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		outcome, err := engine.Authenticate(ctx, "bench", "wrong-secret", false)
		if err != nil || outcome.Status != AuthRejected {
			b.Fatalf("authenticate: %v %v", outcome, err)
		}
	}
}

func BenchmarkAuthenticateSecureParallel(b *testing.B) {
	engine, _ := newBenchEngine(b, true)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			outcome, err := engine.Authenticate(ctx, "bench", "B3nch$ecret", false)
			if err != nil || outcome.Status != AuthAuthenticated {
				b.Fatalf("authenticate: %v %v", outcome, err)
			}
		}
	})
}
