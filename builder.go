package credgate

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/varkas/credgate/internal/rate"
	"github.com/varkas/credgate/password"
	"github.com/varkas/credgate/session"
)

// Builder assembles an [Engine]. Redis and a credential store are required;
// everything else falls back to DefaultConfig.
//
//	engine, err := credgate.New().
//		WithRedis(redisClient).
//		WithStore(store).
//		Build()
type Builder struct {
	config    Config
	hasConfig bool
	redis     redis.UniversalClient
	store     CredentialStore
	auditSink AuditSink
	logger    *slog.Logger
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration wholesale. The builder
// clones it; later mutations of cfg by the caller have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	b.hasConfig = true
	return b
}

// WithRedis sets the Redis client backing the rate limiter. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets the audit sink. Supplying one enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.ensureConfig()
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) ensureConfig() {
	if !b.hasConfig {
		b.config = defaultConfig()
		b.hasConfig = true
	}
}

// Build validates the configuration, wires every component, and returns the
// ready engine. The builder can be discarded afterwards.
func (b *Builder) Build() (*Engine, error) {
	b.ensureConfig()

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.store == nil {
		return nil, errors.New("credential store is required")
	}

	secure, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// An ephemeral keypair keeps development setups working, at the cost of
	// invalidating every outstanding token on restart. Production deployments
	// must supply key material.
	if len(cfg.Session.PrivateKey) == 0 && session.SigningMethod(cfg.Session.SigningMethod) != session.MethodHS256 {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		cfg.Session.PrivateKey = priv
		logger.Warn("no session signing key configured, generated an ephemeral ed25519 key")
	}

	issuer, err := session.NewIssuer(session.Config{
		SigningMethod: session.SigningMethod(cfg.Session.SigningMethod),
		PrivateKey:    cfg.Session.PrivateKey,
		PublicKey:     cfg.Session.PublicKey,
		Issuer:        cfg.Session.Issuer,
		TTL:           cfg.Session.TTL,
		RememberTTL:   cfg.Session.RememberTTL,
	})
	if err != nil {
		return nil, err
	}

	legacy := password.NewLegacy()

	e := &Engine{
		config:  cfg,
		store:   b.store,
		legacy:  legacy,
		secure:  secure,
		issuer:  issuer,
		limiter: rate.New(b.redis, cfg.RateLimit.KeyPrefix),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,

		loginClass:    rateClass("login", cfg.RateLimit.Login),
		registerClass: rateClass("register", cfg.RateLimit.Registration),
		generalClass:  rateClass("general", cfg.RateLimit.General),
	}
	e.verifiers = []credentialVerifier{
		&legacyVerifier{hasher: legacy},
		&secureVerifier{hasher: secure},
	}

	return e, nil
}

func rateClass(name string, cfg RateClassConfig) rate.Class {
	return rate.Class{Name: name, MaxAttempts: cfg.MaxAttempts, Window: cfg.Window}
}
