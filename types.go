package credgate

import (
	"context"
	"strings"
	"time"

	"github.com/varkas/credgate/session"
)

// Role is the authorization level stored on a credential record. Self
// registration always produces [RoleStandard]; [RolePrivileged] records are
// created and mutated only through the privileged administrative paths.
type Role uint8

const (
	// RoleStandard is the default role assigned at self-registration.
	RoleStandard Role = iota
	// RolePrivileged marks administrative accounts.
	RolePrivileged
)

// String returns the wire name of the role ("standard" or "privileged").
func (r Role) String() string {
	if r == RolePrivileged {
		return "privileged"
	}
	return "standard"
}

// ParseRole maps a wire name back to a [Role]. Unknown names report false.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return RoleStandard, true
	case "privileged":
		return RolePrivileged, true
	default:
		return RoleStandard, false
	}
}

// CredentialRecord is the per-account credential row the engine operates on.
//
// Exactly one hash field is authoritative at any time, selected by Migrated:
// Migrated == true implies SecureHash is non-empty and consulted; otherwise
// LegacyHash is consulted. A record moves Migrated false→true at most once,
// on the first successful legacy-path login.
type CredentialRecord struct {
	ID          string
	Identity    string // stored lowercased; the unique login key
	DisplayName string

	LegacyHash string // deprecated unsalted digest; compatibility only
	SecureHash string // PHC argon2id string; empty until migrated
	Migrated   bool

	Role   Role
	Active bool

	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time

	CreatedAt time.Time
}

// Locked reports whether the record is under an active lockout at now.
func (r *CredentialRecord) Locked(now time.Time) bool {
	return r.LockedUntil != nil && r.LockedUntil.After(now)
}

// NormalizeIdentity canonicalizes a login identity for storage and lookup.
// Identities are case-insensitive.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// CredentialStore is the persistence interface the engine depends on.
// Implementations must make MarkMigrated and RecordFailure atomic per
// record; the store package ships in-memory and Postgres implementations.
type CredentialStore interface {
	// FindByIdentity fetches a record by its case-insensitive identity.
	// Returns ErrRecordNotFound when no such account exists.
	FindByIdentity(ctx context.Context, identity string) (*CredentialRecord, error)

	// Create persists a new record. Returns ErrIdentityExists when the
	// identity is already taken (case-insensitively).
	Create(ctx context.Context, rec *CredentialRecord) error

	// MarkMigrated sets secureHash and migrated=true if and only if the
	// record is still unmigrated. The bool reports whether this call won
	// the race; losing is not an error.
	MarkMigrated(ctx context.Context, identity, secureHash string) (bool, error)

	// RecordFailure atomically increments the failed-attempt counter and,
	// when the new count reaches threshold, sets lockedUntil to now+lockFor.
	// Returns the new count.
	RecordFailure(ctx context.Context, identity string, threshold int, lockFor time.Duration) (int, error)

	// RecordSuccess resets the failed-attempt counter, clears any lockout,
	// and stamps lastLoginAt.
	RecordSuccess(ctx context.Context, identity string, at time.Time) error

	// UpdateSecureHash replaces the secure hash of an already-migrated
	// record, used when login-time rehashing upgrades parameters.
	UpdateSecureHash(ctx context.Context, identity, secureHash string) error

	// UpdateRole changes the stored role. Privileged callers only.
	UpdateRole(ctx context.Context, identity string, role Role) error

	// SetActive toggles the account's active flag. Privileged callers only.
	SetActive(ctx context.Context, identity string, active bool) error
}

// AuthStatus classifies the terminal state of an authentication attempt.
type AuthStatus uint8

const (
	// AuthAuthenticated means the secret verified and claims were issued.
	AuthAuthenticated AuthStatus = iota
	// AuthRejected covers unknown identity, inactive account, and wrong
	// secret; the outward message never distinguishes between them.
	AuthRejected
	// AuthLocked means the account is under lockout; RetryAfter is set.
	AuthLocked
	// AuthRateLimited means the client key exceeded its attempt budget
	// before any record was read; RetryAfter is set.
	AuthRateLimited
)

// GenericRejectionMessage is the single outward message for all rejected
// attempts. Using one message for not-found, inactive, and wrong-secret
// prevents account enumeration.
const GenericRejectionMessage = "invalid identity or secret"

// AuthOutcome is the result of [Engine.Authenticate].
type AuthOutcome struct {
	Status AuthStatus

	// Token and Claims are set only when Status is AuthAuthenticated.
	Token  string
	Claims *session.Claims

	// Message is set when Status is AuthRejected.
	Message string

	// RetryAfter is set for AuthLocked and AuthRateLimited.
	RetryAfter time.Duration
}

// Err maps the outcome to its sentinel error, for callers that prefer
// error-style handling over switching on Status: nil for an authenticated
// outcome, [ErrInvalidCredentials] for rejections, [ErrAccountLocked] and
// [ErrLoginRateLimited] wrapped in a [*RateLimitedError] carrying RetryAfter.
func (o *AuthOutcome) Err() error {
	switch o.Status {
	case AuthAuthenticated:
		return nil
	case AuthLocked:
		return &RateLimitedError{RetryAfter: o.RetryAfter, err: ErrAccountLocked}
	case AuthRateLimited:
		return &RateLimitedError{RetryAfter: o.RetryAfter, err: ErrLoginRateLimited}
	default:
		return ErrInvalidCredentials
	}
}

// RegisterRequest is the input to [Engine.Register]. ConfirmSecret is
// compared against Secret and then discarded; it is never persisted in any
// form. Role, if supplied by an outer payload, is ignored by Register.
type RegisterRequest struct {
	Identity      string
	DisplayName   string
	Secret        string
	ConfirmSecret string
	Role          string
}

// RegisterResult is returned by the registration paths.
type RegisterResult struct {
	ID       string
	Identity string
	Role     Role
}
