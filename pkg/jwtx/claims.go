package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cartworks/auth/pkg/idx"
)

// Default token TTL constants. These provide sensible defaults but every
// service overrides them from configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 7 * 24 * time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultVerifyTokenTTL is the default lifetime for email verification
	// tokens.
	DefaultVerifyTokenTTL = 24 * time.Hour
)

// Kind discriminates what a token is allowed to be used for. A refresh token
// presented on a protected route must not pass as an access token, so the
// kind is baked into the claims and checked at verification time.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindVerify  Kind = "verify"
)

// Claims are the token claims shared across the e-commerce services. Keep
// changes additive so gateway-side verification stays compatible.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user. Access tokens only.
	Email string `json:"email,omitempty"`

	// Role is one of "customer", "seller" or "admin". Access tokens only.
	Role string `json:"role,omitempty"`

	// TokenKind marks what flow the token belongs to.
	TokenKind Kind `json:"kind"`
}

// NewClaims builds minimally-correct claims for the given subject and kind.
// Every set of claims carries a fresh jti: timestamps are second-truncated
// on the wire, so without it two tokens minted in the same second for the
// same subject would serialize identically and refresh-token rotation would
// overwrite the stored value with the very token it is meant to replace.
func NewClaims(subject, email, role string, kind Kind, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        idx.NewAt(now).String(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     email,
		Role:      role,
		TokenKind: kind,
	}
}

// RemainingTTL reports how long the token stays naturally valid from now.
// Returns zero for already-expired tokens.
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
