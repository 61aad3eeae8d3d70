package session

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with Ed25519 (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrTokenInvalid is returned for tokens that fail signature or
	// structural validation, including expired ones.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrNotRenewable is returned when renewing a remember-me token, whose
	// expiry is fixed rather than sliding.
	ErrNotRenewable = errors.New("remember tokens have a fixed expiry")
)

// Config configures an [Issuer].
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte // HS256 secret, or Ed25519 seed/private key
	PublicKey     []byte // Ed25519 public key; derived from PrivateKey when empty
	Issuer        string

	TTL         time.Duration // sliding expiry for remember == false
	RememberTTL time.Duration // fixed expiry for remember == true
}

// Claims is the minimal identity payload consumed by authorization
// decisions. It never contains hash material.
type Claims struct {
	Identity    string `json:"idy"`
	Role        string `json:"rol"`
	DisplayName string `json:"dsp,omitempty"`
	Remember    bool   `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session claims. Immutable after construction
// and safe for concurrent use.
type Issuer struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

// NewIssuer validates the key material and returns an [Issuer].
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.TTL <= 0 || cfg.RememberTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}

	i := &Issuer{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		i.method = jwt.SigningMethodHS256
		i.signKey = cfg.PrivateKey
		i.verifyKey = cfg.PrivateKey
	case MethodEd25519, "":
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		i.method = jwt.SigningMethodEdDSA
		i.signKey = priv
		if len(cfg.PublicKey) > 0 {
			if len(cfg.PublicKey) != ed25519.PublicKeySize {
				return nil, errors.New("invalid ed25519 public key length")
			}
			i.verifyKey = ed25519.PublicKey(cfg.PublicKey)
		} else {
			i.verifyKey = priv.Public()
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return i, nil
}

// Issue creates a signed claim set for the authenticated account. remember
// selects the fixed long expiry instead of the sliding short one.
func (i *Issuer) Issue(identity, role, displayName string, remember bool) (string, *Claims, error) {
	ttl := i.config.TTL
	if remember {
		ttl = i.config.RememberTTL
	}

	now := time.Now()
	claims := &Claims{
		Identity:    identity,
		Role:        role,
		DisplayName: displayName,
		Remember:    remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(i.method, claims).SignedString(i.signKey)
	if err != nil {
		return "", nil, err
	}

	return token, claims, nil
}

// Parse validates a presented token and returns its claims. All failures
// collapse into [ErrTokenInvalid].
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != i.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return i.verifyKey, nil
	},
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Renew re-issues a sliding token with a fresh expiry, implementing the
// "1 hour sliding" policy. Remember tokens are not renewable.
func (i *Issuer) Renew(claims *Claims) (string, *Claims, error) {
	if claims == nil {
		return "", nil, ErrTokenInvalid
	}
	if claims.Remember {
		return "", nil, ErrNotRenewable
	}
	return i.Issue(claims.Identity, claims.Role, claims.DisplayName, false)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	default:
		return nil, errors.New("ed25519 requires a 32-byte seed or 64-byte private key")
	}
}
