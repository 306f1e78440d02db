package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Signer is our interface for anything that can sign token claims.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a token string and gives you back the claims if it's
// legit. Verifiers check signature integrity first, then expiry, so callers
// can distinguish "expired" from structurally broken tokens.
type Verifier interface {
	Verify(token string, kind Kind) (Claims, error)
}

// Codec signs and verifies HS256 tokens with a shared process-wide secret.
// The secret is injected at construction; there is no ambient global.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec builds a Codec from the shared signing secret. The secret must be
// non-empty so services fail fast at startup instead of minting forgeable tokens.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issuer reports the issuer stamped into every token this codec signs.
func (c *Codec) Issuer() string { return c.issuer }

// Sign turns claims into a signed compact JWT string.
func (c *Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify parses and validates the token, enforcing the signing method, the
// issuer and the expected token kind. Errors map onto the package sentinels
// so HTTP handlers can give targeted messages without leaking detail.
func (c *Codec) Verify(tokenStr string, kind Kind) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenKind != kind {
		return Claims{}, ErrKindMismatch
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}

	return *claims, nil
}

// mapParseError collapses golang-jwt's error chain into our sentinels.
// Signature problems are reported before expiry by the parser, which matches
// the verify order we promise callers.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}

// ExpiryHint extracts the expiry from a token WITHOUT verifying its
// signature. Only use this for non-authoritative decisions such as choosing
// a blacklist TTL after the token has already been verified elsewhere.
func ExpiryHint(tokenStr string) (time.Time, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, ErrMalformed
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidClaim
	}
	return claims.ExpiresAt.Time, nil
}
