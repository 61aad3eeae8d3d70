package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()

	i, err := NewIssuer(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "credgate-test",
		TTL:           time.Hour,
		RememberTTL:   30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return i
}

func TestIssueAndParse(t *testing.T) {
	i := newTestIssuer(t)

	token, claims, err := i.Issue("alice@x.com", "standard", "Alice", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, claims.ID)

	parsed, err := i.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", parsed.Identity)
	assert.Equal(t, "standard", parsed.Role)
	assert.Equal(t, "Alice", parsed.DisplayName)
	assert.False(t, parsed.Remember)
}

func TestExpiryPolicy(t *testing.T) {
	i := newTestIssuer(t)
	now := time.Now()

	_, short, err := i.Issue("alice@x.com", "standard", "Alice", false)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), short.ExpiresAt.Time, 5*time.Second)

	_, long, err := i.Issue("alice@x.com", "standard", "Alice", true)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), long.ExpiresAt.Time, 5*time.Second)
}

func TestClaimsCarryNoHashMaterial(t *testing.T) {
	i := newTestIssuer(t)

	token, _, err := i.Issue("alice@x.com", "privileged", "Alice", true)
	require.NoError(t, err)

	// JWT payloads are base64 of JSON; assert only the three identity
	// fields plus registered claims appear.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.NotContains(t, token, "argon2id")
	assert.NotContains(t, token, "hash")
}

func TestParseRejectsTamperedToken(t *testing.T) {
	i := newTestIssuer(t)

	token, _, err := i.Issue("alice@x.com", "standard", "Alice", false)
	require.NoError(t, err)

	_, err = i.Parse(token + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other, err := NewIssuer(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:        "credgate-test",
		TTL:           time.Hour,
		RememberTTL:   30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRenewSlidesOnlyShortTokens(t *testing.T) {
	i := newTestIssuer(t)

	_, claims, err := i.Issue("alice@x.com", "standard", "Alice", false)
	require.NoError(t, err)

	token2, renewed, err := i.Renew(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token2)
	assert.Equal(t, claims.Identity, renewed.Identity)
	assert.NotEqual(t, claims.ID, renewed.ID)

	_, remembered, err := i.Issue("alice@x.com", "standard", "Alice", true)
	require.NoError(t, err)
	_, _, err = i.Renew(remembered)
	assert.ErrorIs(t, err, ErrNotRenewable)
}

func TestEd25519RoundTrip(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	i, err := NewIssuer(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    seed,
		Issuer:        "credgate-test",
		TTL:           time.Hour,
		RememberTTL:   30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	token, _, err := i.Issue("bob@x.com", "standard", "Bob", false)
	require.NoError(t, err)

	parsed, err := i.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", parsed.Identity)
}
