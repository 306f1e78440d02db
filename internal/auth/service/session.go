package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cartworks/auth/internal/auth/domain"
	"github.com/cartworks/auth/internal/auth/session"
	"github.com/cartworks/auth/internal/auth/store"
	"github.com/cartworks/auth/pkg/cryptox"
	"github.com/cartworks/auth/pkg/idx"
	"github.com/cartworks/auth/pkg/jwtx"
	"github.com/cartworks/auth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrEmailTaken         = errors.New("email_already_registered")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrStaleToken         = errors.New("stale_token")
	ErrUnknownEmail       = errors.New("unknown_email")
	ErrInvalidResetCode   = errors.New("invalid_reset_code")
)

// resetCodeDigits is the length of the numeric code mailed out for
// password resets. Six digits keeps the code typeable while the short
// TTL and single-use consumption bound the guessing window.
const resetCodeDigits = 6

// SessionService owns the account and session lifecycle: registration,
// login, refresh, logout, email verification and password reset. Token
// state (active refresh token, blacklist, one-shot tokens) lives in the
// shared session.Store so every replica sees the same session.
type SessionService struct {
	Store    store.Store
	Sessions *session.Store
	Codec    *jwtx.Codec
	Mailer   Mailer

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
}

// Register creates a new unverified account, mails out a signed
// verification token and issues an initial token pair. The account is
// usable for non-sensitive actions right away, but a fresh login is
// refused until the email is verified.
func (s *SessionService) Register(ctx context.Context, email, password, firstName, lastName string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, domain.TokenPair{}, ErrEmailTaken
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		// The account exists and the user can request a fresh token
		// later, so a mail failure does not fail registration.
		l.Warn("verification mail failed", "user_id", user.ID, "err", err)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user registered", "user_id", user.ID)
	return user, pair, nil
}

// Login verifies the credentials and issues a fresh token pair. The new
// refresh token replaces whatever refresh token the subject held before,
// so a second login invalidates the first session's refresh token.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Identical failure to a wrong password so the response
			// does not reveal which accounts exist.
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if !user.EmailVerified() {
		return domain.User{}, domain.TokenPair{}, ErrEmailNotVerified
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until it expires,
// the subject logs out, or a newer login replaces it.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}

	revoked, err := s.Sessions.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if revoked {
		return domain.TokenPair{}, ErrInvalidToken
	}

	current, err := s.Sessions.RefreshToken(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}
	if current != refreshToken {
		// Signed and unexpired, but a newer login has replaced it.
		return domain.TokenPair{}, ErrStaleToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	access, err := s.Codec.Sign(jwtx.NewClaims(user.ID, user.Email, user.Role, jwtx.KindAccess, s.AccessTTL, s.Codec.Issuer(), time.Now()))
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Debug("access token refreshed", "user_id", user.ID)
	return domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   s.AccessTTL,
	}, nil
}

// Logout blacklists the presented access token for its remaining
// lifetime and drops the subject's active refresh token. Both steps are
// idempotent, so logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context, accessToken, subjectID string) error {
	l := slogx.FromContext(ctx)

	exp, err := jwtx.ExpiryHint(accessToken)
	if err != nil {
		return ErrInvalidToken
	}

	if err := s.Sessions.Blacklist(ctx, accessToken, time.Until(exp)); err != nil {
		return err
	}
	if err := s.Sessions.ClearRefreshToken(ctx, subjectID); err != nil {
		return err
	}

	l.Info("user logged out", "user_id", subjectID)
	return nil
}

// issuePair mints an access/refresh token pair and records the refresh
// token as the subject's single active one.
func (s *SessionService) issuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	now := time.Now()

	access, err := s.Codec.Sign(jwtx.NewClaims(user.ID, user.Email, user.Role, jwtx.KindAccess, s.AccessTTL, s.Codec.Issuer(), now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Codec.Sign(jwtx.NewClaims(user.ID, user.Email, user.Role, jwtx.KindRefresh, s.RefreshTTL, s.Codec.Issuer(), now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Sessions.StoreRefreshToken(ctx, user.ID, refresh, s.RefreshTTL); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
