package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("test-secret-please-rotate"), "cartworks-auth")
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil, "cartworks-auth")
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	now := time.Now().UTC()
	claims := NewClaims("user-1", "shopper@example.com", "customer", KindAccess, time.Hour, "cartworks-auth", now)

	token, err := c.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := c.Verify(token, KindAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "shopper@example.com", got.Email)
	require.Equal(t, "customer", got.Role)
	require.Equal(t, KindAccess, got.TokenKind)
}

func TestVerifyKindMismatch(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	claims := NewClaims("user-1", "", "", KindRefresh, time.Hour, "cartworks-auth", time.Now().UTC())
	token, err := c.Sign(claims)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	issued := time.Now().UTC().Add(-2 * time.Hour)
	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "cartworks-auth", issued)
	token, err := c.Sign(claims)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	other, err := NewCodec([]byte("another-secret"), "cartworks-auth")
	require.NoError(t, err)

	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "cartworks-auth", time.Now().UTC())
	token, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := c.Verify(token, KindAccess)
		require.ErrorIs(t, err, ErrMalformed, "token %q", token)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	other, err := NewCodec([]byte("test-secret-please-rotate"), "someone-else")
	require.NoError(t, err)

	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "someone-else", time.Now().UTC())
	token, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	// alg=none tokens must never verify.
	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "cartworks-auth", time.Now().UTC())
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	require.Error(t, err)
}

func TestExpiryHint(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	now := time.Now().UTC().Truncate(time.Second)
	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "cartworks-auth", now)
	token, err := c.Sign(claims)
	require.NoError(t, err)

	exp, err := ExpiryHint(token)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	_, err = ExpiryHint("garbage")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRemainingTTL(t *testing.T) {
	t.Parallel()

	// Claim timestamps are second-truncated on the wire, so compare
	// against a whole-second reference time.
	now := time.Now().UTC().Truncate(time.Second)
	claims := NewClaims("user-1", "", "customer", KindAccess, time.Hour, "cartworks-auth", now)
	require.Equal(t, time.Hour, claims.RemainingTTL(now))
	require.Equal(t, time.Duration(0), claims.RemainingTTL(now.Add(2*time.Hour)))
}

func TestTokensAreUniquePerIssuance(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec([]byte("test-secret"), "cartworks-auth")
	require.NoError(t, err)

	// Same subject, same kind, same second: the jti must still make
	// every signed token distinct, or refresh rotation would replace
	// the stored token with an identical string.
	now := time.Now().UTC()
	first, err := codec.Sign(NewClaims("user-1", "", "", KindRefresh, time.Hour, "cartworks-auth", now))
	require.NoError(t, err)
	second, err := codec.Sign(NewClaims("user-1", "", "", KindRefresh, time.Hour, "cartworks-auth", now))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}
