package service

import (
	"context"
	"errors"

	"github.com/cartworks/auth/internal/auth/domain"
	"github.com/cartworks/auth/internal/auth/store"
)

var ErrUserNotFound = errors.New("user_not_found")

// Profile loads the account behind an authenticated subject ID.
func (s *SessionService) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}
