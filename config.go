package credgate

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Build a value with
// DefaultConfig, adjust what you need, and hand it to the [Builder]; the
// engine clones it and treats it as immutable afterwards.
type Config struct {
	Password     PasswordConfig
	Lockout      LockoutConfig
	RateLimit    RateLimitConfig
	Session      SessionConfig
	Registration RegistrationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters used for new and migrated
// credentials, plus the opportunistic-rehash switch.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// RehashOnLogin re-hashes an already-migrated credential on successful
	// login when its embedded parameters fall below the configured ones.
	// Legacy-to-secure migration itself is unconditional.
	RehashOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls per-account lockout after repeated failures.
type LockoutConfig struct {
	Threshold int           // consecutive failures before lockout
	Duration  time.Duration // how long the account stays locked
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateClassConfig is the budget of one endpoint class: at most MaxAttempts
// per rolling Window per client key.
type RateClassConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitConfig holds the independent budgets of the three endpoint
// classes and the Redis key namespace.
type RateLimitConfig struct {
	Login        RateClassConfig
	Registration RateClassConfig
	General      RateClassConfig
	KeyPrefix    string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures claim issuance.
type SessionConfig struct {
	SigningMethod string // "ed25519" or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string

	TTL         time.Duration // sliding expiry when remember is false
	RememberTTL time.Duration // fixed expiry when remember is true
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig is the secret complexity policy enforced at signup.
type RegistrationConfig struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented defaults: lockout after 5 failures
// for 30 minutes; login 5/minute, registration 3/hour, general 100/minute
// per client key; 1 hour sliding sessions, 30 days with remember.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:        64 * 1024,
			Time:          3,
			Parallelism:   2,
			SaltLength:    16,
			KeyLength:     32,
			RehashOnLogin: true,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Login:        RateClassConfig{MaxAttempts: 5, Window: time.Minute},
			Registration: RateClassConfig{MaxAttempts: 3, Window: time.Hour},
			General:      RateClassConfig{MaxAttempts: 100, Window: time.Minute},
			KeyPrefix:    "cg",
		},
		Session: SessionConfig{
			SigningMethod: "ed25519",
			TTL:           time.Hour,
			RememberTTL:   30 * 24 * time.Hour,
			Issuer:        "credgate",
		},
		Registration: RegistrationConfig{
			MinLength:     8,
			RequireUpper:  true,
			RequireLower:  true,
			RequireDigit:  true,
			RequireSymbol: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Lockout.Threshold <= 0 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	for _, class := range []RateClassConfig{c.RateLimit.Login, c.RateLimit.Registration, c.RateLimit.General} {
		if class.MaxAttempts <= 0 {
			return errors.New("rate limit attempts must be positive")
		}
		if class.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}
	if c.Session.TTL <= 0 || c.Session.RememberTTL <= 0 {
		return errors.New("session TTLs must be positive")
	}
	if c.Session.RememberTTL < c.Session.TTL {
		return errors.New("remember TTL must not be shorter than the base TTL")
	}
	if c.Registration.MinLength < 1 {
		return errors.New("registration minimum length must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.PrivateKey = cloneBytes(cfg.Session.PrivateKey)
	out.Session.PublicKey = cloneBytes(cfg.Session.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
