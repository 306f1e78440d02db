package service

import (
	"context"
	"errors"
	"time"

	"github.com/cartworks/auth/internal/auth/domain"
	"github.com/cartworks/auth/internal/auth/session"
	"github.com/cartworks/auth/internal/auth/store"
	"github.com/cartworks/auth/pkg/cryptox"
	"github.com/cartworks/auth/pkg/jwtx"
	"github.com/cartworks/auth/pkg/slogx"
)

// VerifyEmail consumes a verification token and marks the account's
// email as verified. The token must carry a valid signature, be of the
// verify kind, and match the single-use record stored at registration.
func (s *SessionService) VerifyEmail(ctx context.Context, token string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(token, jwtx.KindVerify)
	if err != nil {
		return ErrInvalidToken
	}

	if err := s.Sessions.ConsumeVerificationToken(ctx, claims.Subject, token); err != nil {
		if errors.Is(err, session.ErrTokenMismatch) {
			return ErrInvalidToken
		}
		return err
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, claims.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	l.Info("email verified", "user_id", claims.Subject)
	return nil
}

// RequestPasswordReset mints a short-lived numeric code, records it as
// the subject's single active reset code and mails it out. Unknown
// emails are reported to the caller; enumeration here is accepted
// because registration already confirms which emails exist.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	code, err := cryptox.GenerateNumericCode(resetCodeDigits)
	if err != nil {
		return err
	}

	if err := s.Sessions.StoreResetCode(ctx, user.ID, code, s.ResetTTL); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetCode(ctx, user.Email, code); err != nil {
		return err
	}

	l.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ConfirmPasswordReset consumes a reset code, replaces the account's
// password hash and revokes the subject's active refresh token so any
// live session has to log in again with the new password.
func (s *SessionService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}

	if err := s.Sessions.ConsumeResetCode(ctx, user.ID, code); err != nil {
		if errors.Is(err, session.ErrTokenMismatch) {
			return ErrInvalidResetCode
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.Sessions.ClearRefreshToken(ctx, user.ID); err != nil {
		return err
	}

	l.Info("password reset", "user_id", user.ID)
	return nil
}

// ResendVerification mints a fresh verification token for an account
// that has not verified yet. Already verified accounts are a no-op so
// the endpoint stays idempotent.
func (s *SessionService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}
	if user.EmailVerified() {
		return nil
	}

	return s.sendVerification(ctx, user)
}

// sendVerification mints a signed verify-kind token, records its
// single-use fingerprint and hands it to the mailer.
func (s *SessionService) sendVerification(ctx context.Context, user domain.User) error {
	token, err := s.Codec.Sign(jwtx.NewClaims(user.ID, user.Email, user.Role, jwtx.KindVerify, s.VerifyTTL, s.Codec.Issuer(), time.Now()))
	if err != nil {
		return err
	}

	if err := s.Sessions.StoreVerificationToken(ctx, user.ID, token, s.VerifyTTL); err != nil {
		return err
	}

	return s.Mailer.SendVerificationEmail(ctx, user.Email, token)
}
