package credgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/varkas/credgate/internal/rate"
)

// Register creates a standard account. The flow is: registration-class rate
// limit, confirmation match, complexity policy, then the uniqueness-checked
// insert. New accounts are born migrated: their secret is argon2id-hashed
// immediately and no legacy hash ever exists for them.
//
// req.Role is ignored. Self-registration cannot mint privileged accounts no
// matter what an outer payload carries; use [Engine.RegisterPrivileged].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	identity := NormalizeIdentity(req.Identity)
	ip := clientIPFromContext(ctx)

	decision, err := e.limiter.Check(ctx, rateKey(ip, identity), e.registerClass)
	if err != nil {
		e.logger.ErrorContext(ctx, "rate limiter unavailable, refusing registration",
			slog.String("identity", identity), slog.Any("error", err))
		decision = rate.Decision{Allowed: false, RetryAfter: e.registerClass.Window}
	}
	if !decision.Allowed {
		e.metrics.Inc(MetricRegistrationRateLimited)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventRegistrationRateLimited,
			Identity:  identity,
			IP:        ip,
		})
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter, err: ErrRegistrationRateLimited}
	}

	if identity == "" {
		return nil, e.rejectRegistration(ctx, identity, ip, errors.New("identity must not be empty"))
	}

	// The confirmation is compared and discarded here; it is never hashed,
	// stored, or logged.
	if req.Secret != req.ConfirmSecret {
		return nil, e.rejectRegistration(ctx, identity, ip, ErrSecretConfirmMismatch)
	}

	if err := validateSecret(e.config.Registration, req.Secret); err != nil {
		return nil, e.rejectRegistration(ctx, identity, ip, err)
	}

	return e.createAccount(ctx, identity, req.DisplayName, req.Secret, RoleStandard, ip)
}

// RegisterPrivileged creates a privileged account. This is an administrative
// path: it bypasses the registration rate limit but enforces the same secret
// policy and uniqueness as Register.
func (e *Engine) RegisterPrivileged(ctx context.Context, identity, displayName, secret string) (*RegisterResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	identity = NormalizeIdentity(identity)
	ip := clientIPFromContext(ctx)

	if identity == "" {
		return nil, e.rejectRegistration(ctx, identity, ip, errors.New("identity must not be empty"))
	}
	if err := validateSecret(e.config.Registration, secret); err != nil {
		return nil, e.rejectRegistration(ctx, identity, ip, err)
	}

	return e.createAccount(ctx, identity, displayName, secret, RolePrivileged, ip)
}

func (e *Engine) createAccount(ctx context.Context, identity, displayName, secret string, role Role, ip string) (*RegisterResult, error) {
	secureHash, err := e.secure.Hash(secret)
	if err != nil {
		e.logger.ErrorContext(ctx, "registration hash derivation failed",
			slog.String("identity", identity), slog.Any("error", err))
		return nil, fmt.Errorf("hash derivation: %w", err)
	}

	rec := &CredentialRecord{
		Identity:    identity,
		DisplayName: displayName,
		SecureHash:  secureHash,
		Migrated:    true,
		Role:        role,
		Active:      true,
		CreatedAt:   time.Now(),
	}

	if err := e.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrIdentityExists) {
			return nil, e.rejectRegistration(ctx, identity, ip, ErrIdentityExists)
		}
		e.logger.ErrorContext(ctx, "credential store write failed",
			slog.String("identity", identity), slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	e.metrics.Inc(MetricRegistrationSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRegistrationCreated,
		Identity:  identity,
		IP:        ip,
		Success:   true,
		Metadata:  map[string]string{"role": role.String()},
	})

	return &RegisterResult{ID: rec.ID, Identity: rec.Identity, Role: role}, nil
}

func (e *Engine) rejectRegistration(ctx context.Context, identity, ip string, cause error) error {
	e.metrics.Inc(MetricRegistrationRejected)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRegistrationRejected,
		Identity:  identity,
		IP:        ip,
		Error:     cause.Error(),
	})
	return cause
}

// UpdateRole changes an account's role. Privileged administrative path;
// role validity is the caller's contract, unknown values are refused.
func (e *Engine) UpdateRole(ctx context.Context, identity string, role Role) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if role != RoleStandard && role != RolePrivileged {
		return ErrRoleInvalid
	}

	identity = NormalizeIdentity(identity)
	if err := e.store.UpdateRole(ctx, identity, role); err != nil {
		return err
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRoleChanged,
		Identity:  identity,
		IP:        clientIPFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"role": role.String()},
	})
	return nil
}

// SetActive toggles an account's active flag. Deactivated accounts fail
// authentication with the generic rejection; their stored hashes are kept.
func (e *Engine) SetActive(ctx context.Context, identity string, active bool) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	identity = NormalizeIdentity(identity)
	if err := e.store.SetActive(ctx, identity, active); err != nil {
		return err
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventActiveChanged,
		Identity:  identity,
		IP:        clientIPFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"active": strconv.FormatBool(active)},
	})
	return nil
}

// validateSecret checks the candidate against the complexity policy and
// returns a [*PolicyError] listing every rule it failed, so the caller can
// surface all of them at once.
func validateSecret(cfg RegistrationConfig, secret string) error {
	var violations []string

	// Length is counted in runes, not bytes; multibyte characters each
	// contribute one.
	if utf8.RuneCountInString(secret) < cfg.MinLength {
		violations = append(violations, fmt.Sprintf("at least %d characters", cfg.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if cfg.RequireUpper && !hasUpper {
		violations = append(violations, "an uppercase letter")
	}
	if cfg.RequireLower && !hasLower {
		violations = append(violations, "a lowercase letter")
	}
	if cfg.RequireDigit && !hasDigit {
		violations = append(violations, "a digit")
	}
	if cfg.RequireSymbol && !hasSymbol {
		violations = append(violations, "a symbol")
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}
