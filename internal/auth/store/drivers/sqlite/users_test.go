package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cartworks/auth/internal/auth/domain"
	"github.com/cartworks/auth/internal/auth/store"
	"github.com/cartworks/auth/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleCustomer,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "ada@example.com")

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, domain.RoleCustomer, byID.Role)
	require.False(t, byID.EmailVerified())
	require.False(t, byID.CreatedAt.IsZero())

	byEmail, err := s.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedUser(t, s, "dup@example.com")

	err := s.Users().CreateUser(ctx, domain.User{
		ID:           idx.New().String(),
		Email:        "dup@example.com",
		FirstName:    "Other",
		LastName:     "Person",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// Existing account state is untouched.
	got, err := s.Users().GetUserByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "Ada", got.FirstName)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkEmailVerified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "verify@example.com")

	require.NoError(t, s.Users().MarkEmailVerified(ctx, u.ID))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified())
	firstVerifiedAt := *got.EmailVerifiedAt

	// Idempotent: a second call keeps the original timestamp.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Users().MarkEmailVerified(ctx, u.ID))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, firstVerifiedAt, *got.EmailVerifiedAt)

	require.ErrorIs(t, s.Users().MarkEmailVerified(ctx, "missing"), store.ErrNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "pw@example.com")

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash"))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
}

func TestDeleteUserAndIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := seedUser(t, s, "gone@example.com")

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	require.NoError(t, s.Users().DeleteUser(ctx, u.ID))
	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
