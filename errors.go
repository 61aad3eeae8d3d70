package credgate

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown identity, inactive account, and
	// secret mismatch. Callers must surface it with GenericRejectionMessage.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout is in effect.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is returned when the login-class budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRegistrationRateLimited is returned when the registration-class
	// budget is spent.
	ErrRegistrationRateLimited = errors.New("registration rate limited")
	// ErrRateLimited is returned by the general endpoint-class check.
	ErrRateLimited = errors.New("rate limited")
	// ErrIdentityExists is returned when registering an identity that is
	// already taken (case-insensitively).
	ErrIdentityExists = errors.New("identity already exists")
	// ErrRecordNotFound is returned by stores for unknown identities.
	ErrRecordNotFound = errors.New("credential record not found")
	// ErrSecretConfirmMismatch is returned when the confirmation secret
	// does not match at registration.
	ErrSecretConfirmMismatch = errors.New("secret confirmation mismatch")
	// ErrPasswordPolicy is the base error wrapped by PolicyError.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrStoreUnavailable wraps any credential-store read/write failure.
	// Storage internals are logged, never surfaced.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when the engine was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRoleInvalid is returned for unknown role names on the privileged
	// mutation paths.
	ErrRoleInvalid = errors.New("invalid role")
)

// RateLimitedError carries the retry-after duration alongside the class
// sentinel (ErrRegistrationRateLimited or ErrRateLimited), so transports
// can emit a 429 with a Retry-After header.
type RateLimitedError struct {
	RetryAfter time.Duration
	err        error
}

func (e *RateLimitedError) Error() string {
	return e.err.Error() + ", retry after " + e.RetryAfter.String()
}

// Unwrap lets errors.Is match the class sentinel.
func (e *RateLimitedError) Unwrap() error { return e.err }

// PolicyError reports every complexity rule the candidate secret failed.
// Unlike authentication rejections, validation detail is safe to expose.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Violations, "; ")
}

// Unwrap lets errors.Is(err, ErrPasswordPolicy) match.
func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }
