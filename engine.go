package credgate

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/varkas/credgate/internal/rate"
	"github.com/varkas/credgate/password"
	"github.com/varkas/credgate/session"
)

// Engine is the authentication core. Construct it with [Builder]; the zero
// value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config    Config
	store     CredentialStore
	legacy    *password.Legacy
	secure    *password.Argon2
	issuer    *session.Issuer
	limiter   *rate.Limiter
	verifiers []credentialVerifier
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger

	loginClass    rate.Class
	registerClass rate.Class
	generalClass  rate.Class
}

// Authenticate runs one login attempt through the full decision chain: rate
// limit, record lookup, active and lockout checks, secret verification, and
// the post-verification migration or rehash upgrade.
//
// Unknown identity, inactive account, and wrong secret all produce the same
// AuthRejected outcome carrying [GenericRejectionMessage]; only the audit
// trail records which it was. A rate-limited attempt is refused before any
// record is read. The returned error is non-nil only for internal failures
// (store unreachable, signing failure), never for a refused attempt.
func (e *Engine) Authenticate(ctx context.Context, identity, secret string, remember bool) (*AuthOutcome, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	identity = NormalizeIdentity(identity)
	ip := clientIPFromContext(ctx)
	key := rateKey(ip, identity)

	decision, err := e.limiter.Check(ctx, key, e.loginClass)
	if err != nil {
		// Fail closed: an unreachable limiter must not open the door to
		// unbounded guessing.
		e.logger.ErrorContext(ctx, "rate limiter unavailable, refusing attempt",
			slog.String("identity", identity), slog.Any("error", err))
		decision = rate.Decision{Allowed: false, RetryAfter: e.loginClass.Window}
	}
	if !decision.Allowed {
		e.metrics.Inc(MetricLoginRateLimited)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventLoginRateLimited,
			Identity:  identity,
			IP:        ip,
		})
		return &AuthOutcome{Status: AuthRateLimited, RetryAfter: decision.RetryAfter}, nil
	}

	rec, err := e.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return e.reject(ctx, identity, ip, "identity_not_found"), nil
		}
		e.logger.ErrorContext(ctx, "credential store read failed",
			slog.String("identity", identity), slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	if !rec.Active {
		// Deliberately indistinguishable from a wrong secret outward.
		return e.reject(ctx, identity, ip, "account_inactive"), nil
	}

	now := time.Now()
	if rec.Locked(now) {
		e.metrics.Inc(MetricLoginLocked)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventLoginLocked,
			Identity:  identity,
			IP:        ip,
		})
		return &AuthOutcome{Status: AuthLocked, RetryAfter: rec.LockedUntil.Sub(now)}, nil
	}

	verifier := e.verifierFor(rec)
	if verifier == nil {
		e.logger.WarnContext(ctx, "record has no verifiable credential",
			slog.String("identity", identity), slog.Bool("migrated", rec.Migrated))
		return e.recordFailure(ctx, identity, ip, "no_verifiable_credential"), nil
	}

	ok, err := verifier.verify(rec, secret)
	if err != nil {
		// A malformed stored hash is a verification failure, not an outage.
		e.logger.WarnContext(ctx, "stored hash unverifiable",
			slog.String("identity", identity),
			slog.String("scheme", verifier.scheme()), slog.Any("error", err))
		ok = false
	}
	if !ok {
		return e.recordFailure(ctx, identity, ip, "secret_mismatch"), nil
	}

	// Upgrades (legacy migration, parameter rehash) ride on the verified
	// plaintext and are best effort: their failure never fails the login.
	verifier.upgrade(ctx, e, rec, secret)

	// The recorded attempts for the client key are left alone: the key is
	// shared by every identity behind the IP, and a success for one must
	// not replenish the guessing budget for the others. Attempts age out
	// of the rolling window on their own.
	if err := e.store.RecordSuccess(ctx, identity, now); err != nil {
		e.logger.ErrorContext(ctx, "failure counter reset failed",
			slog.String("identity", identity), slog.Any("error", err))
	}

	token, claims, err := e.issuer.Issue(rec.Identity, rec.Role.String(), rec.DisplayName, remember)
	if err != nil {
		e.logger.ErrorContext(ctx, "claim signing failed",
			slog.String("identity", identity), slog.Any("error", err))
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginSuccess,
		Identity:  identity,
		IP:        ip,
		Success:   true,
		Metadata:  map[string]string{"remember": strconv.FormatBool(remember)},
	})

	return &AuthOutcome{Status: AuthAuthenticated, Token: token, Claims: claims}, nil
}

// reject terminates an attempt that never reached secret verification.
// The failed-attempt counter is untouched: unknown and inactive identities
// have nothing to lock.
func (e *Engine) reject(ctx context.Context, identity, ip, reason string) *AuthOutcome {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginFailure,
		Identity:  identity,
		IP:        ip,
		Error:     reason,
	})
	return &AuthOutcome{Status: AuthRejected, Message: GenericRejectionMessage}
}

// recordFailure terminates a wrong-secret attempt: increment the counter,
// arm the lockout at the threshold, and reject with the generic message.
// The attempt that arms the lockout still reports AuthRejected; the lockout
// bites from the next attempt on.
func (e *Engine) recordFailure(ctx context.Context, identity, ip, reason string) *AuthOutcome {
	count, err := e.store.RecordFailure(ctx, identity, e.config.Lockout.Threshold, e.config.Lockout.Duration)
	if err != nil {
		e.logger.ErrorContext(ctx, "failure counter update failed",
			slog.String("identity", identity), slog.Any("error", err))
	} else if count == e.config.Lockout.Threshold {
		e.metrics.Inc(MetricLockoutTriggered)
	}

	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginFailure,
		Identity:  identity,
		IP:        ip,
		Error:     reason,
		Metadata:  map[string]string{"failed_attempts": strconv.Itoa(count)},
	})

	return &AuthOutcome{Status: AuthRejected, Message: GenericRejectionMessage}
}

// AllowGeneral checks the general endpoint-class budget for the calling
// client. It returns nil when the request fits and a [*RateLimitedError]
// wrapping [ErrRateLimited] when the budget is spent.
func (e *Engine) AllowGeneral(ctx context.Context) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := rateKey(clientIPFromContext(ctx), "")
	decision, err := e.limiter.Check(ctx, key, e.generalClass)
	if err != nil {
		e.logger.ErrorContext(ctx, "rate limiter unavailable, refusing request",
			slog.Any("error", err))
		decision = rate.Decision{Allowed: false, RetryAfter: e.generalClass.Window}
	}
	if decision.Allowed {
		return nil
	}

	e.metrics.Inc(MetricGeneralRateLimited)
	return &RateLimitedError{RetryAfter: decision.RetryAfter, err: ErrRateLimited}
}

// ParseToken validates a presented session token.
func (e *Engine) ParseToken(token string) (*session.Claims, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	return e.issuer.Parse(token)
}

// RenewToken re-issues a sliding token with a fresh expiry. Remember tokens
// keep their fixed expiry and report [session.ErrNotRenewable].
func (e *Engine) RenewToken(token string) (string, *session.Claims, error) {
	if e == nil || e.issuer == nil {
		return "", nil, ErrEngineNotReady
	}

	claims, err := e.issuer.Parse(token)
	if err != nil {
		return "", nil, err
	}
	return e.issuer.Renew(claims)
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	e.audit.Emit(ctx, event)
}

// rateKey prefers the client IP; identity keeps per-account limiting working
// for callers that never attach one.
func rateKey(ip, identity string) string {
	if ip != "" {
		return ip
	}
	if identity != "" {
		return identity
	}
	return "unknown"
}
