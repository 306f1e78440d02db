// Package session keeps the cross-instance session state: the access-token
// blacklist, the single active refresh token per subject, and the single-use
// email-verification and password-reset fingerprints. Everything lives in
// the shared key-value store so revocation is immediately visible to every
// replica.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cartworks/auth/internal/auth/kv"
	"github.com/cartworks/auth/pkg/cryptox"
)

// Key namespaces in the shared store.
const (
	blacklistPrefix = "blacklist:"
	refreshPrefix   = "refresh:"
	verifyPrefix    = "verify:"
	resetPrefix     = "reset:"
)

var (
	// ErrNoRefreshToken reports that no refresh token is on record for the
	// subject (logged out, expired, or never logged in).
	ErrNoRefreshToken = errors.New("session: no refresh token on record")

	// ErrTokenMismatch reports that a presented single-use token does not
	// match the one on record.
	ErrTokenMismatch = errors.New("session: token does not match record")
)

// Store provides the revocation and one-time-token operations.
type Store struct {
	kv kv.Store
}

// NewStore builds a session Store over the shared key-value store.
func NewStore(kvStore kv.Store) *Store {
	return &Store{kv: kvStore}
}

// Blacklist records the access token as revoked for its remaining natural
// lifetime only, so the blacklist cannot grow without bound. Tokens with no
// lifetime left need no entry at all.
func (s *Store) Blacklist(ctx context.Context, token string, remainingTTL time.Duration) error {
	if remainingTTL <= 0 {
		return nil
	}
	return s.kv.Set(ctx, blacklistPrefix+token, "revoked", remainingTTL)
}

// IsBlacklisted reports whether the access token has been revoked. Existence
// of the key invalidates the token regardless of signature validity.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	_, err := s.kv.Get(ctx, blacklistPrefix+token)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StoreRefreshToken makes token the single valid refresh token for the
// subject. The write is an unconditional overwrite (plain SET, no
// compare-and-swap): concurrent logins race, the last writer wins, and every
// previously issued refresh token for the subject becomes stale.
func (s *Store) StoreRefreshToken(ctx context.Context, subjectID, token string, ttl time.Duration) error {
	return s.kv.Set(ctx, refreshPrefix+subjectID, token, ttl)
}

// RefreshToken returns the currently valid refresh token for the subject,
// or ErrNoRefreshToken.
func (s *Store) RefreshToken(ctx context.Context, subjectID string) (string, error) {
	val, err := s.kv.Get(ctx, refreshPrefix+subjectID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrNoRefreshToken
		}
		return "", err
	}
	return val, nil
}

// ClearRefreshToken drops the stored refresh token on logout. Idempotent.
func (s *Store) ClearRefreshToken(ctx context.Context, subjectID string) error {
	return s.kv.Del(ctx, refreshPrefix+subjectID)
}

// StoreVerificationToken records the fingerprint of the issued email
// verification token. Only the fingerprint is at rest; the raw value travels
// by email only.
func (s *Store) StoreVerificationToken(ctx context.Context, subjectID, token string, ttl time.Duration) error {
	return s.kv.Set(ctx, verifyPrefix+subjectID, cryptox.FingerprintToken(token), ttl)
}

// ConsumeVerificationToken checks the presented token against the record and
// deletes it on success. A second presentation fails with ErrTokenMismatch
// because the record is gone.
func (s *Store) ConsumeVerificationToken(ctx context.Context, subjectID, token string) error {
	return s.consume(ctx, verifyPrefix+subjectID, token)
}

// StoreResetCode records the fingerprint of the issued password reset code.
func (s *Store) StoreResetCode(ctx context.Context, subjectID, code string, ttl time.Duration) error {
	return s.kv.Set(ctx, resetPrefix+subjectID, cryptox.FingerprintToken(code), ttl)
}

// ConsumeResetCode checks the presented code against the record and deletes
// it on success.
func (s *Store) ConsumeResetCode(ctx context.Context, subjectID, code string) error {
	return s.consume(ctx, resetPrefix+subjectID, code)
}

func (s *Store) consume(ctx context.Context, key, presented string) error {
	stored, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrTokenMismatch
		}
		return err
	}

	fp := cryptox.FingerprintToken(presented)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(fp)) != 1 {
		return ErrTokenMismatch
	}

	// Delete only after a successful match so a wrong guess cannot burn the
	// legitimate token.
	return s.kv.Del(ctx, key)
}
